package service

import (
	"context"
	"strings"

	"tablepos/internal/dto"
	"tablepos/internal/infra"
	"tablepos/internal/model"
	"tablepos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Cache is the key-value mirror used for offline-tolerant reads. A miss
// reports false with a nil error.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}) error
	Delete(ctx context.Context, key string) error
}

const (
	cacheMenu     = "menu"
	cacheSettings = "settings"
)

// orNoCache swaps a nil cache for the no-op mirror.
func orNoCache(c Cache) Cache {
	if c == nil {
		return infra.NewKVCache(nil, 0)
	}
	return c
}

func draftKey(tableID uuid.UUID) string { return "draft_" + tableID.String() }

func mirrorKey(sess Session, name string) string {
	return infra.CacheKey(sess.RestaurantID.String(), name)
}

// ── Categories ────────────────────────────────────────────────────────────────

// CategoryService defines business operations for menu categories.
type CategoryService interface {
	Create(ctx context.Context, sess Session, req dto.CreateCategoryRequest) (dto.CategoryResponse, error)
	List(ctx context.Context, sess Session) ([]dto.CategoryResponse, error)
	Update(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateCategoryRequest) (dto.CategoryResponse, error)
	Deactivate(ctx context.Context, sess Session, id uuid.UUID) error
}

type categoryService struct {
	repo  repository.CategoryRepository
	menu  repository.MenuRepository
	cache Cache
}

func NewCategoryService(repo repository.CategoryRepository, menu repository.MenuRepository, cache Cache) CategoryService {
	return &categoryService{repo: repo, menu: menu, cache: orNoCache(cache)}
}

func mapCategory(c model.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		SortOrder: c.SortOrder,
		Active:    c.Active,
	}
}

func (s *categoryService) Create(ctx context.Context, sess Session, req dto.CreateCategoryRequest) (dto.CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	existing, err := s.repo.FindByName(ctx, sess.RestaurantID, name)
	if err != nil && !isNotFound(err) {
		return dto.CategoryResponse{}, err
	}
	if existing != nil {
		return dto.CategoryResponse{}, ErrCategoryExists
	}

	c := &model.Category{
		RestaurantID: sess.RestaurantID,
		Name:         name,
		SortOrder:    req.SortOrder,
		Active:       true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return dto.CategoryResponse{}, err
	}
	return mapCategory(*c), nil
}

func (s *categoryService) List(ctx context.Context, sess Session) ([]dto.CategoryResponse, error) {
	list, err := s.repo.List(ctx, sess.RestaurantID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.CategoryResponse, len(list))
	for i, c := range list {
		resp[i] = mapCategory(c)
	}
	return resp, nil
}

// Update renames a category and moves its menu items along with it.
func (s *categoryService) Update(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateCategoryRequest) (dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, sess.RestaurantID, id)
	if err != nil {
		if isNotFound(err) {
			return dto.CategoryResponse{}, ErrCategoryNotFound
		}
		return dto.CategoryResponse{}, err
	}

	oldName := c.Name
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != oldName {
			dup, err := s.repo.FindByName(ctx, sess.RestaurantID, name)
			if err != nil && !isNotFound(err) {
				return dto.CategoryResponse{}, err
			}
			if dup != nil {
				return dto.CategoryResponse{}, ErrCategoryExists
			}
			c.Name = name
		}
	}
	if req.SortOrder != nil {
		c.SortOrder = *req.SortOrder
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return dto.CategoryResponse{}, err
	}
	if c.Name != oldName {
		if err := s.menu.RenameCategory(ctx, sess.RestaurantID, oldName, c.Name); err != nil {
			return dto.CategoryResponse{}, err
		}
		invalidate(ctx, s.cache, mirrorKey(sess, cacheMenu))
	}
	return mapCategory(*c), nil
}

func (s *categoryService) Deactivate(ctx context.Context, sess Session, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, sess.RestaurantID, id); err != nil {
		if isNotFound(err) {
			return ErrCategoryNotFound
		}
		return err
	}
	return s.repo.Deactivate(ctx, sess.RestaurantID, id)
}

// ── Menu ──────────────────────────────────────────────────────────────────────

type MenuService interface {
	Create(ctx context.Context, sess Session, req dto.CreateMenuItemRequest) (*dto.MenuItemResponse, error)
	Get(ctx context.Context, sess Session, id uuid.UUID) (*dto.MenuItemResponse, error)
	List(ctx context.Context, sess Session, filter dto.MenuFilter) (*dto.MenuListResponse, error)
	Update(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateMenuItemRequest) (*dto.MenuItemResponse, error)
	Delete(ctx context.Context, sess Session, id uuid.UUID) error
}

type menuService struct {
	repo       repository.MenuRepository
	categories repository.CategoryRepository
	cache      Cache
}

func NewMenuService(repo repository.MenuRepository, categories repository.CategoryRepository, cache Cache) MenuService {
	return &menuService{repo: repo, categories: categories, cache: orNoCache(cache)}
}

func mapMenuItem(m *model.MenuItem) dto.MenuItemResponse {
	return dto.MenuItemResponse{
		ID:          m.ID.String(),
		Name:        m.Name,
		Price:       m.Price,
		Category:    m.Category,
		IsAvailable: m.IsAvailable,
	}
}

func (s *menuService) checkCategory(ctx context.Context, sess Session, name string) error {
	if _, err := s.categories.FindByName(ctx, sess.RestaurantID, name); err != nil {
		if isNotFound(err) {
			return ErrUnknownCategory
		}
		return err
	}
	return nil
}

func (s *menuService) Create(ctx context.Context, sess Session, req dto.CreateMenuItemRequest) (*dto.MenuItemResponse, error) {
	if err := s.checkCategory(ctx, sess, req.Category); err != nil {
		return nil, err
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	m := &model.MenuItem{
		RestaurantID: sess.RestaurantID,
		Name:         strings.TrimSpace(req.Name),
		Price:        req.Price.Round(2),
		Category:     req.Category,
		IsAvailable:  available,
		Active:       true,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, mirrorKey(sess, cacheMenu))
	resp := mapMenuItem(m)
	return &resp, nil
}

func (s *menuService) Get(ctx context.Context, sess Session, id uuid.UUID) (*dto.MenuItemResponse, error) {
	m, err := s.repo.FindByID(ctx, sess.RestaurantID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	resp := mapMenuItem(m)
	return &resp, nil
}

// List reads the database first. An unfiltered read refreshes the mirror;
// when the database fails the mirror is filtered in memory instead.
func (s *menuService) List(ctx context.Context, sess Session, filter dto.MenuFilter) (*dto.MenuListResponse, error) {
	items, total, err := s.repo.List(ctx, sess.RestaurantID, filter)
	if err != nil {
		if cached, ok := s.fromMirror(ctx, sess, filter); ok {
			log.Warn().Err(err).Str("restaurant_id", sess.RestaurantID.String()).Msg("menu: serving cached mirror")
			return cached, nil
		}
		return nil, err
	}

	resp := &dto.MenuListResponse{
		Items: make([]dto.MenuItemResponse, len(items)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range items {
		resp.Items[i] = mapMenuItem(&items[i])
	}
	if isFullMenu(filter, total) {
		if err := s.cache.SetJSON(ctx, mirrorKey(sess, cacheMenu), resp.Items); err != nil {
			log.Warn().Err(err).Msg("menu: mirror refresh failed")
		}
	}
	return resp, nil
}

func isFullMenu(f dto.MenuFilter, total int64) bool {
	return f.Category == "" && f.Name == "" && f.Available == "" &&
		f.Page <= 1 && (f.Limit <= 0 || int64(f.Limit) >= total)
}

func (s *menuService) fromMirror(ctx context.Context, sess Session, f dto.MenuFilter) (*dto.MenuListResponse, bool) {
	var all []dto.MenuItemResponse
	ok, err := s.cache.GetJSON(ctx, mirrorKey(sess, cacheMenu), &all)
	if err != nil || !ok {
		return nil, false
	}
	var out []dto.MenuItemResponse
	for _, m := range all {
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.Name)) {
			continue
		}
		if (f.Available == "true" && !m.IsAvailable) || (f.Available == "false" && m.IsAvailable) {
			continue
		}
		out = append(out, m)
	}
	total := int64(len(out))
	if f.Limit > 0 && f.Page > 0 {
		start := (f.Page - 1) * f.Limit
		if start > len(out) {
			start = len(out)
		}
		end := start + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	if out == nil {
		out = []dto.MenuItemResponse{}
	}
	return &dto.MenuListResponse{Items: out, Total: total, Page: f.Page, Limit: f.Limit, Cached: true}, true
}

func (s *menuService) Update(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateMenuItemRequest) (*dto.MenuItemResponse, error) {
	m, err := s.repo.FindByID(ctx, sess.RestaurantID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, ErrNegativePrice
		}
		m.Price = req.Price.Round(2)
	}
	if req.Category != nil && *req.Category != m.Category {
		if err := s.checkCategory(ctx, sess, *req.Category); err != nil {
			return nil, err
		}
		m.Category = *req.Category
	}
	if req.IsAvailable != nil {
		m.IsAvailable = *req.IsAvailable
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, mirrorKey(sess, cacheMenu))
	resp := mapMenuItem(m)
	return &resp, nil
}

func (s *menuService) Delete(ctx context.Context, sess Session, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, sess.RestaurantID, id); err != nil {
		if isNotFound(err) {
			return ErrMenuItemNotFound
		}
		return err
	}
	if err := s.repo.SoftDelete(ctx, sess.RestaurantID, id); err != nil {
		return err
	}
	invalidate(ctx, s.cache, mirrorKey(sess, cacheMenu))
	return nil
}

func invalidate(ctx context.Context, c Cache, key string) {
	if err := c.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: invalidate failed")
	}
}
