package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/datamodels/user"
	"github.com/example/goshop/internal/imagestore"
	"github.com/example/goshop/internal/mailer"
	"github.com/example/goshop/internal/stock"
)

// ---------- 商品仓储 ----------

type memProductRepo struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*product.Product
	reviews map[int64][]*product.Review // productID -> reviews
}

func newMemProductRepo(list ...*product.Product) *memProductRepo {
	r := &memProductRepo{
		nextID:  1,
		byID:    make(map[int64]*product.Product),
		reviews: make(map[int64][]*product.Review),
	}
	for _, p := range list {
		if p.ID == 0 {
			p.ID = r.nextID
		}
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
		r.byID[p.ID] = p
	}
	return r
}

func (r *memProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) List(_ context.Context, params product.ListParams) ([]*product.Product, int64, error) {
	all, _ := r.ListAll(context.Background())
	return all, int64(len(all)), nil
}

func (r *memProductRepo) ListAll(context.Context) ([]*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*product.Product, 0, len(r.byID))
	for _, p := range r.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memProductRepo) ListByCategory(context.Context, string) ([]*product.Product, error) {
	return nil, nil
}
func (r *memProductRepo) ListByBrand(context.Context, string) ([]*product.Product, error) {
	return nil, nil
}
func (r *memProductRepo) ListByTag(context.Context, string) ([]*product.Product, error) {
	return nil, nil
}
func (r *memProductRepo) ListPopular(context.Context, int) ([]*product.Product, error) {
	return nil, nil
}
func (r *memProductRepo) ListBestSellers(context.Context, int) ([]*product.Product, error) {
	return nil, nil
}
func (r *memProductRepo) ListFlashSale(context.Context, time.Time) ([]*product.Product, error) {
	return nil, nil
}
func (r *memProductRepo) ListCategories(context.Context) ([]string, error) { return nil, nil }

func (r *memProductRepo) Create(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memProductRepo) Update(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memProductRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	delete(r.reviews, id)
	return nil
}

// SaveReview 与真实实现一致：同用户覆盖旧评价并重算均分
func (r *memProductRepo) SaveReview(_ context.Context, rv *product.Review) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[rv.ProductID]
	if !ok {
		return nil, product.ErrNotFound
	}
	list := r.reviews[rv.ProductID]
	replaced := false
	for i, old := range list {
		if old.UserID == rv.UserID {
			list[i] = rv
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, rv)
	}
	r.reviews[rv.ProductID] = list

	var sum int
	for _, x := range list {
		sum += x.Rating
	}
	p.NumOfReviews = int64(len(list))
	p.Ratings = float64(sum) / float64(len(list))
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) DeleteReview(_ context.Context, productID, reviewID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.reviews[productID]
	for i, rv := range list {
		if rv.ID == reviewID {
			r.reviews[productID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return product.ErrNotFound
}

func (r *memProductRepo) ListReviews(_ context.Context, productID int64) ([]*product.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*product.Review(nil), r.reviews[productID]...), nil
}

// ---------- 订单仓储 ----------

type memOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{nextID: 1, byID: make(map[int64]*order.Order)}
}

func (r *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = r.nextID
	r.nextID++
	o.CreatedAt = time.Now()
	cp := *o
	r.byID[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID int64) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.byID {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListAll(context.Context) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*order.Order, 0, len(r.byID))
	for _, o := range r.byID {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memOrderRepo) SumTotal(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, o := range r.byID {
		sum += o.TotalPrice
	}
	return sum, nil
}

func (r *memOrderRepo) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; !ok {
		return order.ErrNotFound
	}
	cp := *o
	r.byID[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

// ---------- 用户仓储 ----------

type memUserRepo struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]*user.User
	cart      map[int64]map[int64]*user.CartItem
	bookmarks map[int64]map[int64]bool
	addrs     map[int64]*user.Address
	nextAddr  int64
}

func newMemUserRepo(list ...*user.User) *memUserRepo {
	r := &memUserRepo{
		nextID:    1,
		nextAddr:  1,
		byID:      make(map[int64]*user.User),
		cart:      make(map[int64]map[int64]*user.CartItem),
		bookmarks: make(map[int64]map[int64]bool),
		addrs:     make(map[int64]*user.Address),
	}
	for _, u := range list {
		if u.ID == 0 {
			u.ID = r.nextID
		}
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
		r.byID[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memUserRepo) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.ResetPasswordToken == tokenHash && u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.nextID
	r.nextID++
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return user.ErrNotFound
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	delete(r.cart, id)
	delete(r.bookmarks, id)
	return nil
}

func (r *memUserRepo) ListAll(context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*user.User, 0, len(r.byID))
	for _, u := range r.byID {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memUserRepo) ListCart(_ context.Context, userID int64) ([]*user.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.CartItem
	for _, item := range r.cart[userID] {
		cp := *item
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memUserRepo) GetCartItem(_ context.Context, userID, productID int64) (*user.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.cart[userID][productID]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *memUserRepo) SaveCartItem(_ context.Context, item *user.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cart[item.UserID] == nil {
		r.cart[item.UserID] = make(map[int64]*user.CartItem)
	}
	cp := *item
	r.cart[item.UserID][item.ProductID] = &cp
	return nil
}

func (r *memUserRepo) DeleteCartItem(_ context.Context, userID, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cart[userID], productID)
	return nil
}

func (r *memUserRepo) ListBookmarks(_ context.Context, userID int64) ([]*user.Bookmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.Bookmark
	for pid := range r.bookmarks[userID] {
		out = append(out, &user.Bookmark{UserID: userID, ProductID: pid})
	}
	return out, nil
}

func (r *memUserRepo) HasBookmark(_ context.Context, userID, productID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bookmarks[userID][productID], nil
}

func (r *memUserRepo) CreateBookmark(_ context.Context, bm *user.Bookmark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bookmarks[bm.UserID] == nil {
		r.bookmarks[bm.UserID] = make(map[int64]bool)
	}
	r.bookmarks[bm.UserID][bm.ProductID] = true
	return nil
}

func (r *memUserRepo) DeleteBookmark(_ context.Context, userID, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bookmarks[userID], productID)
	return nil
}

func (r *memUserRepo) ListAddresses(_ context.Context, userID int64) ([]*user.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.Address
	for _, a := range r.addrs {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUserRepo) GetAddress(_ context.Context, userID, addressID int64) (*user.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addrs[addressID]
	if !ok || a.UserID != userID {
		return nil, user.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memUserRepo) SaveAddress(_ context.Context, addr *user.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if addr.ID == 0 {
		addr.ID = r.nextAddr
		r.nextAddr++
	}
	cp := *addr
	r.addrs[addr.ID] = &cp
	return nil
}

func (r *memUserRepo) ClearDefaultAddress(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.addrs {
		if a.UserID == userID {
			a.IsDefault = false
		}
	}
	return nil
}

func (r *memUserRepo) DeleteAddress(_ context.Context, userID, addressID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.addrs[addressID]; ok && a.UserID == userID {
		delete(r.addrs, addressID)
	}
	return nil
}

// ---------- 预占器 / 事件 / 邮件 / 图床 ----------

type fakeReserver struct {
	mu    sync.Mutex
	calls [][]stock.Item
	err   error
}

func (f *fakeReserver) Reserve(_ context.Context, items []stock.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, items)
	return f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*order.Event
	err    error
}

func (f *fakePublisher) PublishOrderEvent(_ context.Context, ev *order.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m *mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeImageStore struct {
	mu        sync.Mutex
	uploads   int
	destroyed []string
}

func (f *fakeImageStore) Upload(_ context.Context, data []byte, folder string) (*imagestore.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return &imagestore.Image{
		PublicID: folder + "/fake",
		URL:      "https://images.test/" + folder + "/fake",
	}, nil
}

func (f *fakeImageStore) Destroy(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, publicID)
	return nil
}
