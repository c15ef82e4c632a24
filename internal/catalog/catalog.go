// Package catalog serves the public course listing: live courses only,
// filtered and sorted over the denormalized meta snapshot.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/observability"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Query is the catalog filter set. Zero values mean "no filter".
type Query struct {
	Search    string   `json:"search,omitempty"`
	MinRating float64  `json:"min_rating,omitempty"`
	PriceMin  *int64   `json:"price_min,omitempty"`
	PriceMax  *int64   `json:"price_max,omitempty"`
	TimeMin   *int     `json:"time_min,omitempty"`
	TimeMax   *int     `json:"time_max,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Levels    []string `json:"levels,omitempty"`
	AgeLimits []string `json:"age_limits,omitempty"`
	// Categories/SubCategories/Topics form one OR-group: a course matches
	// when any of the three hits.
	Categories    []string `json:"categories,omitempty"`
	SubCategories []string `json:"sub_categories,omitempty"`
	Topics        []string `json:"topics,omitempty"`

	Sort   string `json:"sort,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// ShortCourse is the listing projection of a live course.
type ShortCourse struct {
	ID          uuid.UUID `json:"id"`
	AuthorID    uuid.UUID `json:"author_id"`
	LiveVersion int       `json:"live_version"`

	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	AuthorName       string   `json:"author_name"`
	Level            string   `json:"level"`
	Category         string   `json:"category"`
	SubCategory      string   `json:"sub_category"`
	Topic            string   `json:"topic"`
	Languages        []string `json:"languages"`
	TotalLectures    int      `json:"total_lectures"`
	TotalTime        int      `json:"total_time"`

	Price     int64  `json:"price"`
	SalePrice *int64 `json:"sale_price,omitempty"`

	Rating      float64 `json:"rating"`
	RatingQty   int     `json:"rating_qty"`
	StudentsQty int     `json:"students_qty"`
}

// Page is one catalog result page.
type Page struct {
	Courses []ShortCourse `json:"courses"`
	Total   int64         `json:"total"`
	Offset  int           `json:"offset"`
	Limit   int           `json:"limit"`
}

const (
	defaultLimit = 20
	maxLimit     = 100
	// fanOutLimit bounds concurrent per-course policy lookups.
	fanOutLimit = 8
)

type Catalog struct {
	db       *gorm.DB
	policies repos.PricingPolicyRepo
	cache    *redis.Client
	cacheTTL time.Duration
	log      *logger.Logger
}

// New builds the catalog read model. cache may be nil to disable caching.
func New(db *gorm.DB, policies repos.PricingPolicyRepo, cache *redis.Client, cacheTTL time.Duration, baseLog *logger.Logger) *Catalog {
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &Catalog{
		db:       db,
		policies: policies,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      baseLog.With("component", "Catalog"),
	}
}

func cacheKey(q Query) string {
	raw, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return "catalog:search:" + hex.EncodeToString(sum[:8])
}

// Search lists live courses matching the query, newest first by default.
func (c *Catalog) Search(ctx context.Context, q Query) (*Page, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	key := cacheKey(q)
	if c.cache != nil && key != "" {
		if raw, err := c.cache.Get(ctx, key).Bytes(); err == nil {
			var page Page
			if err := json.Unmarshal(raw, &page); err == nil {
				observability.Current().IncCatalogCache("hit")
				return &page, nil
			}
		}
		observability.Current().IncCatalogCache("miss")
	}

	page, err := c.search(ctx, q)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && key != "" {
		if raw, err := json.Marshal(page); err == nil {
			if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
				c.log.Warn("catalog cache write failed", "error", err)
			}
		}
	}
	return page, nil
}

func (c *Catalog) search(ctx context.Context, q Query) (*Page, error) {
	base := c.db.WithContext(ctx).
		Model(&types.Course{}).
		Where("live_version IS NOT NULL AND live_version > 0")

	if q.MinRating > 0 {
		base = base.Where("rating >= ?", q.MinRating)
	}
	if q.PriceMin != nil {
		base = base.Where("(meta->>'price')::bigint >= ?", *q.PriceMin)
	}
	if q.PriceMax != nil {
		base = base.Where("(meta->>'price')::bigint <= ?", *q.PriceMax)
	}
	if q.TimeMin != nil {
		base = base.Where("(meta->>'total_time')::int >= ?", *q.TimeMin)
	}
	if q.TimeMax != nil {
		base = base.Where("(meta->>'total_time')::int <= ?", *q.TimeMax)
	}
	if len(q.Levels) > 0 {
		base = base.Where("meta->>'level' IN ?", q.Levels)
	}
	if len(q.AgeLimits) > 0 {
		base = base.Where("meta->>'age_limit' IN ?", q.AgeLimits)
	}
	if len(q.Languages) > 0 {
		conds := make([]string, 0, len(q.Languages))
		args := make([]any, 0, len(q.Languages))
		for _, lang := range q.Languages {
			conds = append(conds, "meta->'languages' @> ?::jsonb")
			args = append(args, fmt.Sprintf("[%q]", lang))
		}
		base = base.Where(strings.Join(conds, " OR "), args...)
	}
	if len(q.Categories) > 0 || len(q.SubCategories) > 0 || len(q.Topics) > 0 {
		var conds []string
		var args []any
		if len(q.Categories) > 0 {
			conds = append(conds, "meta->>'category' IN ?")
			args = append(args, q.Categories)
		}
		if len(q.SubCategories) > 0 {
			conds = append(conds, "meta->>'sub_category' IN ?")
			args = append(args, q.SubCategories)
		}
		if len(q.Topics) > 0 {
			conds = append(conds, "meta->>'topic' IN ?")
			args = append(args, q.Topics)
		}
		base = base.Where(strings.Join(conds, " OR "), args...)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := "%" + term + "%"
		base = base.Where(
			"meta->>'title' ILIKE ? OR meta->>'short_description' ILIKE ? OR meta->>'description' ILIKE ? OR meta->>'keywords' ILIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []*types.Course
	if err := base.Session(&gorm.Session{}).
		Order(orderClause(q.Sort)).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	courses, err := c.project(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &Page{Courses: courses, Total: total, Offset: q.Offset, Limit: q.Limit}, nil
}

func orderClause(sort string) string {
	switch sort {
	case "rating":
		return "rating DESC, rating_qty DESC"
	case "popular":
		return "students_qty DESC"
	case "price_asc":
		return "(meta->>'price')::bigint ASC"
	case "price_desc":
		return "(meta->>'price')::bigint DESC"
	default:
		return "created_at DESC"
	}
}

// project maps course rows to the listing shape and resolves each course's
// display price concurrently.
func (c *Catalog) project(ctx context.Context, rows []*types.Course) ([]ShortCourse, error) {
	out := make([]ShortCourse, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	now := time.Now().UTC()
	for i, row := range rows {
		g.Go(func() error {
			sc := Project(row)
			policies, err := c.policies.ListActiveTargetingCourse(gctx, nil, row.ID, now)
			if err != nil {
				return err
			}
			ApplyDisplayOverride(&sc, row, policies)
			out[i] = sc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Project builds the listing projection from the meta snapshot.
func Project(row *types.Course) ShortCourse {
	m := row.Meta.Data()
	live := 0
	if row.LiveVersion != nil {
		live = *row.LiveVersion
	}
	return ShortCourse{
		ID:               row.ID,
		AuthorID:         row.AuthorID,
		LiveVersion:      live,
		Title:            m.Title,
		ShortDescription: m.ShortDescription,
		AuthorName:       m.AuthorName,
		Level:            m.Level,
		Category:         m.Category,
		SubCategory:      m.SubCategory,
		Topic:            m.Topic,
		Languages:        m.Languages,
		TotalLectures:    m.TotalLectures,
		TotalTime:        m.TotalTime,
		Price:            m.Price,
		Rating:           row.Rating,
		RatingQty:        row.RatingQty,
		StudentsQty:      row.StudentsQty,
	}
}

// ApplyDisplayOverride rewrites the listed price using the most recently
// updated active author-created override, if any. Policies must be ordered by
// updated_at descending.
func ApplyDisplayOverride(sc *ShortCourse, row *types.Course, policies []*types.PricingPolicy) {
	for _, p := range policies {
		if p == nil || p.Type == types.PolicyTypeDiscount {
			continue
		}
		if p.CreatedBy != row.AuthorID {
			continue
		}
		if !p.TargetsVersion(sc.LiveVersion) {
			continue
		}
		value := int64(p.Value * 100)
		if !p.ShowOriginalPrice {
			sc.Price = value
			return
		}
		if p.InitialValue > 0 {
			sc.Price = int64(p.InitialValue * 100)
			sale := value
			sc.SalePrice = &sale
		}
		return
	}
}
