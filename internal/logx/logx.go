package logx

import (
	"context"

	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	playerKey contextKey = iota
	sessionKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithPlayer annotates the logger with the player name if present.
func WithPlayer(ctx context.Context, player string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if player != "" {
		if current, ok := ctx.Value(playerKey).(string); ok && current == player {
			return log
		}
		log = log.With("player", player)
	}
	return log
}

// WithPlayerSession annotates the logger with player and session identifiers.
func WithPlayerSession(ctx context.Context, player string, sessionID schema.SessionID) pslog.Logger {
	log := WithPlayer(ctx, player)
	if sessionID != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == sessionID {
			return log
		}
		log = log.With("session", sessionID)
	}
	return log
}

// WithGame annotates the logger with game metadata when available.
func WithGame(log pslog.Logger, game schema.GameRef) pslog.Logger {
	if game.Name != "" {
		log = log.With("game", game.Name)
	}
	if game.Path != "" {
		log = log.With("game_path", game.Path)
	}
	return log
}

// WithSession annotates the logger with a session id when available.
func WithSession(log pslog.Logger, sessionID schema.SessionID) pslog.Logger {
	if sessionID != "" {
		log = log.With("session", sessionID)
	}
	return log
}

// ContextWithPlayer stores the player marker on the context for log de-duplication.
func ContextWithPlayer(ctx context.Context, player string) context.Context {
	if ctx == nil || player == "" {
		return ctx
	}
	return context.WithValue(ctx, playerKey, player)
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID schema.SessionID) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithPlayerSession stores player/session markers on the context for log de-duplication.
func ContextWithPlayerSession(ctx context.Context, player string, sessionID schema.SessionID) context.Context {
	return ContextWithSession(ContextWithPlayer(ctx, player), sessionID)
}

// ContextWithPlayerLogger attaches the logger and player marker to the context.
func ContextWithPlayerLogger(ctx context.Context, log pslog.Logger, player string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithPlayer(ctx, player)
}

// ContextWithPlayerSessionLogger attaches the logger and player/session markers to the context.
func ContextWithPlayerSessionLogger(ctx context.Context, log pslog.Logger, player string, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithPlayerSession(ctx, player, sessionID)
}

// CopyContextFields copies player/session markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if player, ok := src.Value(playerKey).(string); ok && player != "" {
		dst = ContextWithPlayer(dst, player)
	}
	if session, ok := src.Value(sessionKey).(schema.SessionID); ok && session != "" {
		dst = ContextWithSession(dst, session)
	}
	return dst
}
