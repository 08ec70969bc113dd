package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pagebuilder/internal/domain"
)

const (
	pagesCollection     = "pages"
	revisionsCollection = "page_revisions"
)

// MongoStore implements domain.PageStore and domain.RevisionStore on MongoDB.
// Trees are kept as JSON text so every backend stores the same bytes.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoPage struct {
	ID          string     `bson:"_id"`
	Shop        string     `bson:"shop"`
	Slug        string     `bson:"slug"`
	Status      string     `bson:"status"`
	Components  string     `bson:"components_json"`
	Editor      string     `bson:"editor_json"`
	Version     int64      `bson:"version"`
	PublishedAt *time.Time `bson:"published_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

type mongoRevision struct {
	ID         string    `bson:"_id"`
	PageID     string    `bson:"page_id"`
	Label      string    `bson:"label"`
	Version    int64     `bson:"version"`
	Components string    `bson:"components_json"`
	CreatedAt  time.Time `bson:"created_at"`
}

// OpenMongo connects to uri and uses database dbName.
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	log.Printf("[MONGO] Connecting with URI: %s", maskURI(uri))
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(dbName)}
	_, err = s.db.Collection(revisionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "page_id", Value: 1}, {Key: "version", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create revision index: %w", err)
	}
	log.Printf("[MONGO] Database: %s", dbName)
	return s, nil
}

func (s *MongoStore) pages() *mongo.Collection     { return s.db.Collection(pagesCollection) }
func (s *MongoStore) revisions() *mongo.Collection { return s.db.Collection(revisionsCollection) }

func (m mongoPage) toDomain() (*domain.Page, error) {
	p := &domain.Page{
		ID:          m.ID,
		Shop:        m.Shop,
		Slug:        m.Slug,
		Status:      domain.PageStatus(m.Status),
		Version:     m.Version,
		PublishedAt: m.PublishedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	owner := "page " + m.ID
	var err error
	if p.Components, err = decodeTree(owner, m.Components); err != nil {
		return nil, err
	}
	if p.Editor, err = decodeOverlay(owner, m.Editor); err != nil {
		return nil, err
	}
	return p, nil
}

func (m mongoRevision) toDomain() (*domain.Revision, error) {
	t, err := decodeTree("revision "+m.ID, m.Components)
	if err != nil {
		return nil, err
	}
	return &domain.Revision{
		ID:         m.ID,
		PageID:     m.PageID,
		Label:      m.Label,
		Version:    m.Version,
		Components: t,
		CreatedAt:  m.CreatedAt,
	}, nil
}

// ── PageStore ───────────────────────────────────────────────

func (s *MongoStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	var doc mongoPage
	err := s.pages().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get page %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", id, err)
	}
	return doc.toDomain()
}

func (s *MongoStore) ListPages(ctx context.Context, shop string) ([]domain.Page, error) {
	filter := bson.M{}
	if shop != "" {
		filter["shop"] = shop
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.pages().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var docs []mongoPage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	pages := make([]domain.Page, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, nil
}

func (s *MongoStore) SavePage(ctx context.Context, p *domain.Page) error {
	components, err := encodeTree(p.Components)
	if err != nil {
		return err
	}
	editor, err := encodeOverlay(p.Editor)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = domain.PageStatusDraft
	}
	doc := mongoPage{
		ID:          p.ID,
		Shop:        p.Shop,
		Slug:        p.Slug,
		Status:      string(p.Status),
		Components:  components,
		Editor:      editor,
		Version:     p.Version,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	_, err = s.pages().ReplaceOne(ctx, bson.M{"_id": p.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save page %s: %w", p.ID, err)
	}
	return nil
}

func (s *MongoStore) DeletePage(ctx context.Context, id string) error {
	res, err := s.pages().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete page %s: %w", id, domain.ErrNotFound)
	}
	if _, err := s.revisions().DeleteMany(ctx, bson.M{"page_id": id}); err != nil {
		return fmt.Errorf("delete revisions of %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ── RevisionStore ───────────────────────────────────────────

func (s *MongoStore) PushRevision(ctx context.Context, r *domain.Revision) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	components, err := encodeTree(r.Components)
	if err != nil {
		return err
	}
	_, err = s.revisions().InsertOne(ctx, mongoRevision{
		ID:         r.ID,
		PageID:     r.PageID,
		Label:      r.Label,
		Version:    r.Version,
		Components: components,
		CreatedAt:  r.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

func (s *MongoStore) ListRevisions(ctx context.Context, pageID string, limit int) ([]domain.Revision, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}, {Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.revisions().Find(ctx, bson.M{"page_id": pageID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	var docs []mongoRevision
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	out := make([]domain.Revision, 0, len(docs))
	for _, d := range docs {
		r, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *MongoStore) GetRevision(ctx context.Context, id string) (*domain.Revision, error) {
	var doc mongoRevision
	err := s.revisions().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get revision %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision %s: %w", id, err)
	}
	return doc.toDomain()
}

func (s *MongoStore) Prune(ctx context.Context, pageID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "version", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"_id": 1})
	cursor, err := s.revisions().Find(ctx, bson.M{"page_id": pageID}, opts)
	if err != nil {
		return 0, fmt.Errorf("select old revisions: %w", err)
	}
	var stale []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &stale); err != nil {
		return 0, fmt.Errorf("select old revisions: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(stale))
	for _, d := range stale {
		ids = append(ids, d.ID)
	}
	res, err := s.revisions().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("delete old revisions: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) PageIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.revisions().Distinct(ctx, "page_id", bson.M{}).Decode(&ids); err != nil {
		return nil, fmt.Errorf("list revision pages: %w", err)
	}
	return ids, nil
}
