package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/auth"
	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/datamodels/user"
	"github.com/example/goshop/internal/imagestore"
	"github.com/example/goshop/internal/mailer"
)

const resetTokenTTL = 15 * time.Minute

// UserService 账号、资料与个人数据（购物车/收藏/地址）
type UserService struct {
	users    user.Repository
	products product.Repository
	jwt      *config.JWTConfig
	mail     mailer.Mailer
	images   imagestore.Store
	log      *zap.Logger

	// ResetURLBase 重置链接前缀，邮件里拼接明文 token
	ResetURLBase string
}

func NewUserService(users user.Repository, products product.Repository, jwt *config.JWTConfig, mail mailer.Mailer, images imagestore.Store, log *zap.Logger) *UserService {
	return &UserService{
		users:        users,
		products:     products,
		jwt:          jwt,
		mail:         mail,
		images:       images,
		log:          log,
		ResetURLBase: "https://shop.example.com/password/reset",
	}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Register 注册并直接登录，返回用户与 JWT
func (s *UserService) Register(ctx context.Context, name, email, password string, avatar []byte) (*user.User, string, error) {
	if name == "" || email == "" {
		return nil, "", apperr.Validation("name and email are required")
	}
	if len(password) < 6 {
		return nil, "", apperr.Validation("password must be at least 6 characters")
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", apperr.Validation("email is already registered")
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, "", err
	}

	salt, err := randomHex(16)
	if err != nil {
		return nil, "", err
	}
	u := &user.User{
		Name:     name,
		Email:    email,
		Salt:     salt,
		Password: hashPassword(password, salt),
		Role:     auth.RoleUser,
	}
	if len(avatar) > 0 {
		img, err := s.images.Upload(ctx, avatar, "avatars")
		if err != nil {
			return nil, "", apperr.Upstream("avatar upload failed")
		}
		u.AvatarPublicID = img.PublicID
		u.AvatarURL = img.URL
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := auth.GenerateToken(s.jwt, u.ID, u.Name, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login 邮箱+密码登录，返回用户与 JWT
func (s *UserService) Login(ctx context.Context, email, password string) (*user.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperr.Validation("email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", apperr.Unauthorized("invalid email or password")
		}
		return nil, "", err
	}
	if hashPassword(password, u.Salt) != u.Password {
		return nil, "", apperr.Unauthorized("invalid email or password")
	}
	token, err := auth.GenerateToken(s.jwt, u.ID, u.Name, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Get 按 ID 查用户
func (s *UserService) Get(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

// ForgotPassword 生成重置令牌并发邮件。库里只存哈希，
// 找不到邮箱也返回成功，避免探测已注册邮箱。
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := randomHex(20)
	if err != nil {
		return err
	}
	sum := sha256.Sum256([]byte(token))
	expire := time.Now().Add(resetTokenTTL)
	u.ResetPasswordToken = hex.EncodeToString(sum[:])
	u.ResetPasswordExpire = &expire
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	msg := &mailer.Message{
		To:      u.Email,
		Subject: "Password Recovery",
		Body:    fmt.Sprintf("Your password reset link is:\n\n%s/%s\n\nIf you have not requested this email then please ignore it.", s.ResetURLBase, token),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		// 发信失败要清掉令牌，避免留下不可达的重置入口
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = nil
		if uerr := s.users.Update(ctx, u); uerr != nil {
			s.log.Error("clear reset token failed", zap.Int64("user_id", u.ID), zap.Error(uerr))
		}
		return apperr.Upstream("failed to send recovery email")
	}
	return nil
}

// ResetPassword 用邮件里的明文令牌重置密码并直接登录
func (s *UserService) ResetPassword(ctx context.Context, token, password, confirm string) (*user.User, string, error) {
	if password != confirm {
		return nil, "", apperr.Validation("passwords do not match")
	}
	if len(password) < 6 {
		return nil, "", apperr.Validation("password must be at least 6 characters")
	}
	sum := sha256.Sum256([]byte(token))
	u, err := s.users.GetByResetToken(ctx, hex.EncodeToString(sum[:]), time.Now())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", apperr.Validation("reset password token is invalid or has expired")
		}
		return nil, "", err
	}

	salt, err := randomHex(16)
	if err != nil {
		return nil, "", err
	}
	u.Salt = salt
	u.Password = hashPassword(password, salt)
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	if err := s.users.Update(ctx, u); err != nil {
		return nil, "", err
	}

	jwtToken, err := auth.GenerateToken(s.jwt, u.ID, u.Name, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, jwtToken, nil
}

// UpdatePassword 登录态下修改密码，需验证旧密码
func (s *UserService) UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if hashPassword(oldPassword, u.Salt) != u.Password {
		return apperr.Validation("old password is incorrect")
	}
	if len(newPassword) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}
	salt, err := randomHex(16)
	if err != nil {
		return err
	}
	u.Salt = salt
	u.Password = hashPassword(newPassword, salt)
	return s.users.Update(ctx, u)
}

// UpdateProfile 修改姓名/邮箱/头像，新头像会替换旧图
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, name, email string, avatar []byte) (*user.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		u.Name = name
	}
	if email != "" && email != u.Email {
		if _, err := s.users.GetByEmail(ctx, email); err == nil {
			return nil, apperr.Validation("email is already registered")
		} else if !errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		u.Email = email
	}
	if len(avatar) > 0 {
		if u.AvatarPublicID != "" {
			if err := s.images.Destroy(ctx, u.AvatarPublicID); err != nil {
				s.log.Warn("destroy old avatar failed",
					zap.String("public_id", u.AvatarPublicID),
					zap.Error(err))
			}
		}
		img, err := s.images.Upload(ctx, avatar, "avatars")
		if err != nil {
			return nil, apperr.Upstream("avatar upload failed")
		}
		u.AvatarPublicID = img.PublicID
		u.AvatarURL = img.URL
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ---------- 管理端用户管理 ----------

func (s *UserService) ListAll(ctx context.Context) ([]*user.User, error) {
	return s.users.ListAll(ctx)
}

// UpdateRole 管理员调整用户角色，不允许改自己的角色
func (s *UserService) UpdateRole(ctx context.Context, adminID, targetID int64, role string) (*user.User, error) {
	if role != auth.RoleUser && role != auth.RoleAdmin {
		return nil, apperr.Validation("invalid role")
	}
	if adminID == targetID {
		return nil, apperr.Forbidden("you cannot change your own role")
	}
	u, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser 管理员删除用户，连带清理头像与个人数据
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.AvatarPublicID != "" {
		if err := s.images.Destroy(ctx, u.AvatarPublicID); err != nil {
			s.log.Warn("destroy avatar failed",
				zap.String("public_id", u.AvatarPublicID),
				zap.Error(err))
		}
	}
	return s.users.Delete(ctx, id)
}

// ---------- 购物车 ----------

func (s *UserService) ListCart(ctx context.Context, userID int64) ([]*user.CartItem, error) {
	return s.users.ListCart(ctx, userID)
}

// SaveCartItem 加购或更新数量，数量上限受商品限购约束
func (s *UserService) SaveCartItem(ctx context.Context, userID, productID, quantity int64) error {
	if quantity <= 0 {
		return apperr.Validation("quantity must be positive")
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return apperr.NotFound("product not found")
		}
		return err
	}
	if quantity > p.MaxOrderQuantity {
		return apperr.Validation(fmt.Sprintf("order quantity for %s exceeds maximum allowed: %d", p.Name, p.MaxOrderQuantity))
	}
	return s.users.SaveCartItem(ctx, &user.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

func (s *UserService) DeleteCartItem(ctx context.Context, userID, productID int64) error {
	return s.users.DeleteCartItem(ctx, userID, productID)
}

// ---------- 收藏 ----------

func (s *UserService) ListBookmarks(ctx context.Context, userID int64) ([]*user.Bookmark, error) {
	return s.users.ListBookmarks(ctx, userID)
}

// ToggleBookmark 收藏/取消收藏，返回操作后是否处于收藏态
func (s *UserService) ToggleBookmark(ctx context.Context, userID, productID int64) (bool, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return false, apperr.NotFound("product not found")
		}
		return false, err
	}
	has, err := s.users.HasBookmark(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	if has {
		return false, s.users.DeleteBookmark(ctx, userID, productID)
	}
	return true, s.users.CreateBookmark(ctx, &user.Bookmark{UserID: userID, ProductID: productID})
}

// ---------- 地址 ----------

func (s *UserService) ListAddresses(ctx context.Context, userID int64) ([]*user.Address, error) {
	return s.users.ListAddresses(ctx, userID)
}

// SaveAddress 新增或修改地址；设为默认时清掉原默认
func (s *UserService) SaveAddress(ctx context.Context, userID int64, addr *user.Address) (*user.Address, error) {
	if addr.Street == "" || addr.City == "" || addr.Country == "" {
		return nil, apperr.Validation("street, city and country are required")
	}
	if addr.ID != 0 {
		if _, err := s.users.GetAddress(ctx, userID, addr.ID); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return nil, apperr.NotFound("address not found")
			}
			return nil, err
		}
	}
	addr.UserID = userID
	if addr.IsDefault {
		if err := s.users.ClearDefaultAddress(ctx, userID); err != nil {
			return nil, err
		}
	}
	if err := s.users.SaveAddress(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *UserService) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	if _, err := s.users.GetAddress(ctx, userID, addressID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.NotFound("address not found")
		}
		return err
	}
	return s.users.DeleteAddress(ctx, userID, addressID)
}
