package service

import (
	"context"

	"compsystem/internal/model"
)

type sessionCtxKey struct{}

// WithSession 把当前会话放进请求上下文
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFrom 取出上下文中的会话
func SessionFrom(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(*model.Session)
	return s, ok && s != nil
}

// RequireSession 所有业务操作的前置检查，没有会话时不访问存储
func RequireSession(ctx context.Context) (*model.Session, error) {
	s, ok := SessionFrom(ctx)
	if !ok {
		return nil, model.ErrNoSession
	}
	return s, nil
}

// AnonymousSession 关闭登录（auth.enabled=false）的部署使用
func AnonymousSession() *model.Session {
	return &model.Session{ID: "anonymous", Anonymous: true}
}
