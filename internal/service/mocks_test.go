package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"time"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/repository"
	"github.com/galley-app/galley/internal/storage"
)

// =============================================================================
// Mock Repository Types
// =============================================================================

// mockUserRepository is an in-memory implementation of repository.UserRepository.
type mockUserRepository struct {
	users     map[int64]*domain.User
	nextID    int64
	createErr error
	getErr    error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		items = append(items, m.users[id])
	}
	return &repository.ListResult[domain.User]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// mockTokenRepository is an in-memory implementation of repository.TokenRepository.
type mockTokenRepository struct {
	tokens map[string]*domain.Token
	nextID int64
}

func newMockTokenRepository() *mockTokenRepository {
	return &mockTokenRepository{
		tokens: make(map[string]*domain.Token),
		nextID: 1,
	}
}

func (m *mockTokenRepository) Create(ctx context.Context, token *domain.Token) error {
	token.ID = m.nextID
	m.nextID++
	m.tokens[token.Digest] = token
	return nil
}

func (m *mockTokenRepository) GetByDigest(ctx context.Context, digest string) (*domain.Token, error) {
	if t, ok := m.tokens[digest]; ok {
		return t, nil
	}
	return nil, domain.ErrTokenNotFound
}

func (m *mockTokenRepository) DeleteByDigest(ctx context.Context, digest string) error {
	if _, ok := m.tokens[digest]; !ok {
		return domain.ErrTokenNotFound
	}
	delete(m.tokens, digest)
	return nil
}

func (m *mockTokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	var deleted int64
	for digest, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, digest)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	var deleted int64
	for digest, t := range m.tokens {
		if t.ExpiresAt != nil && t.ExpiresAt.Before(now) {
			delete(m.tokens, digest)
			deleted++
		}
	}
	return deleted, nil
}

// mockCatalogRepository is an in-memory implementation of
// repository.CatalogRepository.
type mockCatalogRepository struct {
	kind     domain.CatalogKind
	items    map[int64]*domain.CatalogItem
	assigned map[int64]bool
	nextID   int64
}

func newMockCatalogRepository(kind domain.CatalogKind) *mockCatalogRepository {
	return &mockCatalogRepository{
		kind:     kind,
		items:    make(map[int64]*domain.CatalogItem),
		assigned: make(map[int64]bool),
		nextID:   1,
	}
}

func (m *mockCatalogRepository) Kind() domain.CatalogKind {
	return m.kind
}

func (m *mockCatalogRepository) Create(ctx context.Context, item *domain.CatalogItem) error {
	for _, existing := range m.items {
		if existing.UserID == item.UserID && existing.Name == item.Name {
			return domain.ErrCatalogItemExists
		}
	}
	item.ID = m.nextID
	m.nextID++
	m.items[item.ID] = item
	return nil
}

func (m *mockCatalogRepository) GetByID(ctx context.Context, userID, id int64) (*domain.CatalogItem, error) {
	if item, ok := m.items[id]; ok && item.UserID == userID {
		return item, nil
	}
	return nil, domain.ErrCatalogItemNotFound
}

func (m *mockCatalogRepository) GetByName(ctx context.Context, userID int64, name string) (*domain.CatalogItem, error) {
	for _, item := range m.items {
		if item.UserID == userID && item.Name == name {
			return item, nil
		}
	}
	return nil, domain.ErrCatalogItemNotFound
}

func (m *mockCatalogRepository) GetOrCreate(ctx context.Context, userID int64, name string) (*domain.CatalogItem, error) {
	if item, err := m.GetByName(ctx, userID, name); err == nil {
		return item, nil
	}
	item := domain.NewCatalogItem(userID, name)
	if err := m.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (m *mockCatalogRepository) ListByUser(ctx context.Context, userID int64, opts repository.CatalogListOptions) ([]*domain.CatalogItem, error) {
	var result []*domain.CatalogItem
	for _, item := range m.items {
		if item.UserID != userID {
			continue
		}
		if opts.AssignedOnly && !m.assigned[item.ID] {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name > result[j].Name })
	return result, nil
}

func (m *mockCatalogRepository) Rename(ctx context.Context, userID, id int64, name string) error {
	item, err := m.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	item.Name = name
	return nil
}

func (m *mockCatalogRepository) Delete(ctx context.Context, userID, id int64) error {
	if _, err := m.GetByID(ctx, userID, id); err != nil {
		return err
	}
	delete(m.items, id)
	return nil
}

// mockRecipeRepository is an in-memory implementation of
// repository.RecipeRepository. Tag and ingredient link sets are resolved
// against the catalog mocks on load.
type mockRecipeRepository struct {
	recipes     map[int64]*domain.Recipe
	tagLinks    map[int64][]int64
	ingLinks    map[int64][]int64
	tags        *mockCatalogRepository
	ingredients *mockCatalogRepository
	nextID      int64
}

func newMockRecipeRepository(tags, ingredients *mockCatalogRepository) *mockRecipeRepository {
	return &mockRecipeRepository{
		recipes:     make(map[int64]*domain.Recipe),
		tagLinks:    make(map[int64][]int64),
		ingLinks:    make(map[int64][]int64),
		tags:        tags,
		ingredients: ingredients,
		nextID:      1,
	}
}

func (m *mockRecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	recipe.ID = m.nextID
	m.nextID++
	copied := *recipe
	m.recipes[recipe.ID] = &copied
	return nil
}

func (m *mockRecipeRepository) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	rec, ok := m.recipes[id]
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}
	return m.withRelations(rec), nil
}

func (m *mockRecipeRepository) List(ctx context.Context, userID int64, opts repository.RecipeListOptions) ([]*domain.Recipe, error) {
	var result []*domain.Recipe
	for _, rec := range m.recipes {
		if rec.UserID != userID {
			continue
		}
		if len(opts.TagIDs) > 0 && !linkedToAny(m.tagLinks[rec.ID], opts.TagIDs) {
			continue
		}
		if len(opts.IngredientIDs) > 0 && !linkedToAny(m.ingLinks[rec.ID], opts.IngredientIDs) {
			continue
		}
		result = append(result, m.withRelations(rec))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockRecipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	if _, ok := m.recipes[recipe.ID]; !ok {
		return domain.ErrRecipeNotFound
	}
	copied := *recipe
	m.recipes[recipe.ID] = &copied
	return nil
}

func (m *mockRecipeRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.recipes[id]; !ok {
		return domain.ErrRecipeNotFound
	}
	delete(m.recipes, id)
	delete(m.tagLinks, id)
	delete(m.ingLinks, id)
	return nil
}

func (m *mockRecipeRepository) SetTags(ctx context.Context, recipeID int64, tagIDs []int64) error {
	m.tagLinks[recipeID] = append([]int64(nil), tagIDs...)
	for _, id := range tagIDs {
		m.tags.assigned[id] = true
	}
	return nil
}

func (m *mockRecipeRepository) SetIngredients(ctx context.Context, recipeID int64, ingredientIDs []int64) error {
	m.ingLinks[recipeID] = append([]int64(nil), ingredientIDs...)
	for _, id := range ingredientIDs {
		m.ingredients.assigned[id] = true
	}
	return nil
}

func (m *mockRecipeRepository) UpdateImagePath(ctx context.Context, recipeID int64, path string) error {
	rec, ok := m.recipes[recipeID]
	if !ok {
		return domain.ErrRecipeNotFound
	}
	rec.ImagePath = path
	return nil
}

func (m *mockRecipeRepository) withRelations(rec *domain.Recipe) *domain.Recipe {
	copied := *rec
	copied.Tags = []*domain.CatalogItem{}
	copied.Ingredients = []*domain.CatalogItem{}
	for _, id := range m.tagLinks[rec.ID] {
		if item, ok := m.tags.items[id]; ok {
			copied.Tags = append(copied.Tags, item)
		}
	}
	for _, id := range m.ingLinks[rec.ID] {
		if item, ok := m.ingredients.items[id]; ok {
			copied.Ingredients = append(copied.Ingredients, item)
		}
	}
	return &copied
}

func linkedToAny(linked, wanted []int64) bool {
	for _, l := range linked {
		for _, w := range wanted {
			if l == w {
				return true
			}
		}
	}
	return false
}

// mockTxManager runs the function directly; the mocks have no transactions.
type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockMediaStore is an in-memory implementation of storage.MediaStore.
type mockMediaStore struct {
	objects map[string][]byte
	saveErr error
}

func newMockMediaStore() *mockMediaStore {
	return &mockMediaStore{objects: make(map[string][]byte)}
}

func (m *mockMediaStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *mockMediaStore) Open(ctx context.Context, key string) (io.ReadCloser, *storage.MediaInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, nil, storage.ErrMediaNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), &storage.MediaInfo{Size: int64(len(data))}, nil
}

func (m *mockMediaStore) Delete(ctx context.Context, key string) error {
	if _, ok := m.objects[key]; !ok {
		return storage.ErrMediaNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *mockMediaStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}
