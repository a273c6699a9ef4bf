package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxIdentity ctxKey = iota
	ctxTenantID
	ctxRole
)

func WithIdentity(ctx context.Context, identity, tenantID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxIdentity, identity)
	ctx = context.WithValue(ctx, ctxTenantID, tenantID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func Identity(ctx context.Context) (string, error) {
	v := ctx.Value(ctxIdentity)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("identity not in context")
}

func TenantID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxTenantID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("tenant_id not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
