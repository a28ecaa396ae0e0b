package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"compsystem/internal/infrastructure/cache"
	"compsystem/internal/model"
	"compsystem/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// OperatorStore 操作员账号存储
type OperatorStore interface {
	Create(ctx context.Context, op *model.Operator) error
	GetByEmail(ctx context.Context, email string) (*model.Operator, error)
}

type AuthOptions struct {
	Enabled    bool
	Secret     string
	TTL        time.Duration
	BcryptCost int
	Now        func() time.Time
}

// AuthService 登录、登出与令牌校验。
// 令牌是 HS256 JWT，携带会话ID；会话本身存放在 SessionStore，登出即失效。
type AuthService struct {
	operators OperatorStore
	sessions  cache.SessionStore
	opts      AuthOptions
	log       *zap.Logger
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
	Name      string    `json:"display_name"`
}

func NewAuthService(operators OperatorStore, sessions cache.SessionStore, log *zap.Logger, opts AuthOptions) *AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{operators: operators, sessions: sessions, opts: opts, log: log}
}

// Enabled 是否要求登录
func (s *AuthService) Enabled() bool {
	return s.opts.Enabled
}

// EnsureOperator 启动时创建初始账号，已存在则跳过
func (s *AuthService) EnsureOperator(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	_, err := s.operators.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrOperatorNotFound) {
		return fmt.Errorf("查询操作员失败: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("生成密码哈希失败: %w", err)
	}
	op := &model.Operator{
		Email:        email,
		DisplayName:  email,
		PasswordHash: string(hash),
	}
	if err := s.operators.Create(ctx, op); err != nil {
		return fmt.Errorf("创建操作员失败: %w", err)
	}
	s.log.Info("已创建初始操作员", zap.String("email", email))
	return nil
}

// Login 校验邮箱密码，创建会话并签发令牌
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	op, err := s.operators.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, model.Persistence(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("登录失败", zap.String("email", op.Email))
		return nil, model.ErrInvalidCredentials
	}

	now := s.opts.Now()
	sess := &model.Session{
		ID:         uuid.NewString(),
		OperatorID: op.ID,
		Email:      op.Email,
		ExpiresAt:  now.Add(s.opts.TTL),
	}
	if err := s.sessions.Save(ctx, sess, s.opts.TTL); err != nil {
		return nil, fmt.Errorf("保存会话失败: %w", err)
	}

	claims := sessionClaims{
		SessionID: sess.ID,
		Email:     op.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(op.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
	if err != nil {
		return nil, fmt.Errorf("签发令牌失败: %w", err)
	}

	s.log.Info("登录成功", zap.String("email", op.Email), zap.String("session_id", sess.ID))
	return &LoginResult{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		Email:     op.Email,
		Name:      op.DisplayName,
	}, nil
}

// Authenticate 校验令牌并确认会话仍然存在，任何失败都是 ErrNoSession
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if !s.opts.Enabled {
		return AnonymousSession(), nil
	}
	if token == "" {
		return nil, model.ErrNoSession
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.opts.Now))
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, model.ErrNoSession
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, cache.ErrSessionNotFound) {
			s.log.Error("读取会话失败", zap.String("session_id", claims.SessionID), zap.Error(err))
		}
		return nil, model.ErrNoSession
	}
	return sess, nil
}

// Logout 删除当前会话
func (s *AuthService) Logout(ctx context.Context) error {
	sess, err := RequireSession(ctx)
	if err != nil {
		return err
	}
	if sess.Anonymous {
		return nil
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	s.log.Info("已登出", zap.String("email", sess.Email), zap.String("session_id", sess.ID))
	return nil
}
