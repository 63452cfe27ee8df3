package auth

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RevocationStore is an in-memory jti denylist. An entry lives until the
// token it names would have expired anyway.
type RevocationStore struct {
	mu      sync.RWMutex
	entries map[string]RevocationInfo
	now     func() time.Time
}

type RevocationInfo struct {
	JTI       string    `json:"jti"`
	RevokedBy string    `json:"revoked_by,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{entries: make(map[string]RevocationInfo), now: time.Now}
}

func (s *RevocationStore) Revoke(info RevocationInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[info.JTI] = info
}

func (s *RevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[jti]
	return ok && s.now().Before(e.ExpiresAt)
}

// Entries returns the live entries ordered by expiry.
func (s *RevocationStore) Entries() []RevocationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]RevocationInfo, 0, len(s.entries))
	for _, e := range s.entries {
		if now.Before(e.ExpiresAt) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}

func (s *RevocationStore) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for jti, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, jti)
			removed++
		}
	}
	return removed
}

// StartCleanup drops expired entries every interval until ctx is done.
func (s *RevocationStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
}

type revokeRequest struct {
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegisterRevocationRoutes mounts the admin-only revocation endpoints.
func RegisterRevocationRoutes(g *echo.Group, store *RevocationStore) {
	admin := g.Group("/auth", RequireRole(RoleAdmin))
	admin.POST("/revoke", func(c echo.Context) error {
		var req revokeRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if req.JTI == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "jti is required")
		}
		if req.ExpiresAt.IsZero() {
			req.ExpiresAt = store.now().Add(24 * time.Hour)
		}
		store.Revoke(RevocationInfo{
			JTI:       req.JTI,
			RevokedBy: UserIDFromContext(c.Request().Context()),
			ExpiresAt: req.ExpiresAt,
		})
		return c.NoContent(http.StatusNoContent)
	})
	admin.GET("/revocations", func(c echo.Context) error {
		entries := store.Entries()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"count":   len(entries),
			"entries": entries,
		})
	})
}
