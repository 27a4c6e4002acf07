package service_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/auth"
	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/datamodels/user"
	"github.com/example/goshop/internal/service"
)

func testAddress(street string, isDefault bool) *user.Address {
	return &user.Address{
		Street:     street,
		City:       "Springfield",
		State:      "IL",
		Country:    "US",
		PostalCode: "62701",
		IsDefault:  isDefault,
	}
}

func newUserService(users *memUserRepo, products *memProductRepo, mail *fakeMailer) *service.UserService {
	jwt := &config.JWTConfig{Secret: "test-secret", ExpireHours: 1}
	return service.NewUserService(users, products, jwt, mail, &fakeImageStore{}, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := newMemUserRepo()
	svc := newUserService(users, newMemProductRepo(), &fakeMailer{})

	u, token, err := svc.Register(ctx, "alice", "alice@example.com", "secret1", nil)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, u.Role)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "secret1", u.Password)
	assert.NotEmpty(t, u.Salt)

	t.Run("duplicate email", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "alice2", "alice@example.com", "secret2", nil)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("short password", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "bob", "bob@example.com", "123", nil)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("login ok", func(t *testing.T) {
		got, token, err := svc.Login(ctx, "alice@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		jwt := &config.JWTConfig{Secret: "test-secret", ExpireHours: 1}
		claims, err := auth.ParseToken(jwt, token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice@example.com", "nope")
		assert.Equal(t, http.StatusUnauthorized, apperr.StatusOf(err))
	})

	t.Run("unknown email indistinguishable from wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "ghost@example.com", "secret1")
		assert.Equal(t, http.StatusUnauthorized, apperr.StatusOf(err))
	})
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := newMemUserRepo()
	mail := &fakeMailer{}
	svc := newUserService(users, newMemProductRepo(), mail)

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "secret1", nil)
	require.NoError(t, err)

	t.Run("unknown email still succeeds", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "ghost@example.com"))
		assert.Empty(t, mail.sent)
	})

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	require.Len(t, mail.sent, 1)

	// 明文令牌只出现在邮件里，从正文把它抠出来
	body := mail.sent[0].Body
	i := strings.LastIndex(body, "/")
	require.Greater(t, i, 0)
	token := strings.Fields(body[i+1:])[0]

	t.Run("mismatched confirmation", func(t *testing.T) {
		_, _, err := svc.ResetPassword(ctx, token, "newpass1", "newpass2")
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("reset succeeds and logs in", func(t *testing.T) {
		u, jwtToken, err := svc.ResetPassword(ctx, token, "newpass1", "newpass1")
		require.NoError(t, err)
		assert.NotEmpty(t, jwtToken)
		assert.Empty(t, u.ResetPasswordToken)

		_, _, err = svc.Login(ctx, "alice@example.com", "newpass1")
		assert.NoError(t, err)
		_, _, err = svc.Login(ctx, "alice@example.com", "secret1")
		assert.Error(t, err)
	})

	t.Run("token single use", func(t *testing.T) {
		_, _, err := svc.ResetPassword(ctx, token, "another1", "another1")
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := newMemUserRepo()
	svc := newUserService(users, newMemProductRepo(), &fakeMailer{})
	u, _, err := svc.Register(ctx, "alice", "alice@example.com", "secret1", nil)
	require.NoError(t, err)

	assert.Error(t, svc.UpdatePassword(ctx, u.ID, "wrong", "newpass1"))
	require.NoError(t, svc.UpdatePassword(ctx, u.ID, "secret1", "newpass1"))

	_, _, err = svc.Login(ctx, "alice@example.com", "newpass1")
	assert.NoError(t, err)
}

func TestAdminRoleManagement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := newMemUserRepo()
	svc := newUserService(users, newMemProductRepo(), &fakeMailer{})
	admin, _, err := svc.Register(ctx, "root", "root@example.com", "secret1", nil)
	require.NoError(t, err)
	target, _, err := svc.Register(ctx, "alice", "alice@example.com", "secret1", nil)
	require.NoError(t, err)

	t.Run("cannot change own role", func(t *testing.T) {
		_, err := svc.UpdateRole(ctx, admin.ID, admin.ID, auth.RoleUser)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.UpdateRole(ctx, admin.ID, target.ID, "superuser")
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("promote", func(t *testing.T) {
		u, err := svc.UpdateRole(ctx, admin.ID, target.ID, auth.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, u.Role)
	})
}

func TestCartAndBookmarks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	products := newMemProductRepo(&product.Product{ID: 1, Name: "tee", Price: 2000, Stock: 10, MaxOrderQuantity: 3})
	users := newMemUserRepo()
	svc := newUserService(users, products, &fakeMailer{})

	t.Run("cart respects max order quantity", func(t *testing.T) {
		err := svc.SaveCartItem(ctx, 1, 1, 4)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))

		require.NoError(t, svc.SaveCartItem(ctx, 1, 1, 2))
		list, err := svc.ListCart(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(2), list[0].Quantity)

		// 再次加购覆盖数量
		require.NoError(t, svc.SaveCartItem(ctx, 1, 1, 3))
		list, _ = svc.ListCart(ctx, 1)
		assert.Equal(t, int64(3), list[0].Quantity)
	})

	t.Run("cart rejects unknown product", func(t *testing.T) {
		err := svc.SaveCartItem(ctx, 1, 99, 1)
		assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
	})

	t.Run("bookmark toggles", func(t *testing.T) {
		on, err := svc.ToggleBookmark(ctx, 1, 1)
		require.NoError(t, err)
		assert.True(t, on)

		off, err := svc.ToggleBookmark(ctx, 1, 1)
		require.NoError(t, err)
		assert.False(t, off)

		list, err := svc.ListBookmarks(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestAddresses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := newMemUserRepo()
	svc := newUserService(users, newMemProductRepo(), &fakeMailer{})

	a1, err := svc.SaveAddress(ctx, 1, testAddress("1 Main St", true))
	require.NoError(t, err)
	assert.True(t, a1.IsDefault)

	a2, err := svc.SaveAddress(ctx, 1, testAddress("2 Oak Ave", true))
	require.NoError(t, err)
	assert.True(t, a2.IsDefault)

	// 新默认地址要顶掉旧默认
	list, err := svc.ListAddresses(ctx, 1)
	require.NoError(t, err)
	var defaults int
	for _, a := range list {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	t.Run("delete someone else's address", func(t *testing.T) {
		err := svc.DeleteAddress(ctx, 2, a1.ID)
		assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
	})

	require.NoError(t, svc.DeleteAddress(ctx, 1, a1.ID))
}
