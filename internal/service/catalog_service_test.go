package service

import (
	"context"
	"errors"
	"testing"

	"tablepos/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog() (CategoryService, MenuService, *stubMenuRepo, *memCache, Session) {
	cats := newStubCategoryRepo()
	menu := newStubMenuRepo()
	cache := newMemCache()
	return NewCategoryService(cats, menu, cache), NewMenuService(menu, cats, cache), menu, cache,
		Session{RestaurantID: uuid.New(), UserID: uuid.New()}
}

func TestCategory_CreateRejectsDuplicate(t *testing.T) {
	cats, _, _, _, sess := newCatalog()
	ctx := context.Background()

	_, err := cats.Create(ctx, sess, dto.CreateCategoryRequest{Name: "Starters"})
	require.NoError(t, err)
	_, err = cats.Create(ctx, sess, dto.CreateCategoryRequest{Name: " starters "})
	assert.ErrorIs(t, err, ErrCategoryExists)
}

func TestCategory_RenameMovesItems(t *testing.T) {
	cats, menu, menuRepo, cache, sess := newCatalog()
	ctx := context.Background()

	c, err := cats.Create(ctx, sess, dto.CreateCategoryRequest{Name: "Mains"})
	require.NoError(t, err)
	item, err := menu.Create(ctx, sess, dto.CreateMenuItemRequest{Name: "Dal", Price: dec("150"), Category: "Mains"})
	require.NoError(t, err)
	_, err = menu.List(ctx, sess, dto.MenuFilter{Page: 1, Limit: 200})
	require.NoError(t, err)
	require.True(t, cache.has(mirrorKey(sess, cacheMenu)))

	_, err = cats.Update(ctx, sess, uuid.MustParse(c.ID), dto.UpdateCategoryRequest{Name: ptr("Main Course")})
	require.NoError(t, err)
	assert.Equal(t, "Main Course", menuRepo.items[uuid.MustParse(item.ID)].Category)
	assert.False(t, cache.has(mirrorKey(sess, cacheMenu)))

	_, err = cats.Update(ctx, sess, uuid.New(), dto.UpdateCategoryRequest{})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestMenu_CreateValidatesCategory(t *testing.T) {
	_, menu, _, _, sess := newCatalog()
	_, err := menu.Create(context.Background(), sess, dto.CreateMenuItemRequest{Name: "Lassi", Price: dec("60"), Category: "Drinks"})
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestMenu_UpdateAndDelete(t *testing.T) {
	cats, menu, _, _, sess := newCatalog()
	ctx := context.Background()
	_, _ = cats.Create(ctx, sess, dto.CreateCategoryRequest{Name: "Breads"})
	item, err := menu.Create(ctx, sess, dto.CreateMenuItemRequest{Name: "Naan", Price: dec("40.555"), Category: "Breads"})
	require.NoError(t, err)
	assert.True(t, item.Price.Equal(dec("40.56")))
	assert.True(t, item.IsAvailable)
	id := uuid.MustParse(item.ID)

	_, err = menu.Update(ctx, sess, id, dto.UpdateMenuItemRequest{Price: ptr(dec("-1"))})
	assert.ErrorIs(t, err, ErrNegativePrice)

	upd, err := menu.Update(ctx, sess, id, dto.UpdateMenuItemRequest{IsAvailable: ptr(false)})
	require.NoError(t, err)
	assert.False(t, upd.IsAvailable)

	require.NoError(t, menu.Delete(ctx, sess, id))
	_, err = menu.Get(ctx, sess, id)
	assert.ErrorIs(t, err, ErrMenuItemNotFound)
}

func TestMenu_ListFallsBackToMirror(t *testing.T) {
	cats, menu, menuRepo, _, sess := newCatalog()
	ctx := context.Background()
	_, _ = cats.Create(ctx, sess, dto.CreateCategoryRequest{Name: "Breads"})
	_, _ = cats.Create(ctx, sess, dto.CreateCategoryRequest{Name: "Drinks"})
	_, _ = menu.Create(ctx, sess, dto.CreateMenuItemRequest{Name: "Naan", Price: dec("40"), Category: "Breads"})
	_, _ = menu.Create(ctx, sess, dto.CreateMenuItemRequest{Name: "Lassi", Price: dec("60"), Category: "Drinks"})

	full, err := menu.List(ctx, sess, dto.MenuFilter{Page: 1, Limit: 200})
	require.NoError(t, err)
	assert.False(t, full.Cached)
	assert.Equal(t, int64(2), full.Total)

	menuRepo.err = errors.New("db down")
	cached, err := menu.List(ctx, sess, dto.MenuFilter{Category: "Drinks", Page: 1, Limit: 200})
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	require.Len(t, cached.Items, 1)
	assert.Equal(t, "Lassi", cached.Items[0].Name)
}
