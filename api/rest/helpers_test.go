package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/duskhollow/server/api/rest"
	"github.com/duskhollow/server/cache"
	"github.com/duskhollow/server/config"
	"github.com/duskhollow/server/game/character"
	"github.com/duskhollow/server/game/dungeon"
	"github.com/duskhollow/server/game/event"
	"github.com/duskhollow/server/game/ranking"
	mw "github.com/duskhollow/server/middleware"
	"github.com/duskhollow/server/resource"
	"github.com/duskhollow/server/scheduler"
	"github.com/duskhollow/server/store"
	"github.com/duskhollow/server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const adminKey = "test-admin-key"

var cat = resource.MustLoadDefaults()

type announcer struct {
	mu   sync.Mutex
	msgs []string
}

func (a *announcer) Announce(_ context.Context, msg string) error {
	a.mu.Lock()
	a.msgs = append(a.msgs, msg)
	a.mu.Unlock()
	return nil
}

type server struct {
	r        *gin.Engine
	st       store.Store
	cache    cache.Cache
	dice     *testutil.Dice
	sched    *scheduler.Scheduler
	announce *announcer
}

func newServer(t *testing.T) *server {
	t.Helper()
	st := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sec := config.SecurityConfig{
		JWTSecret:  "test-secret",
		JWTTTLH:    time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	gameCfg := config.GameConfig{
		MaxCharacters:     2,
		StartingGold:      50,
		HealCostPerHP:     1,
		LaborUnit:         time.Hour,
		LaborMaxHours:     8,
		LaborBaseWage:     10,
		TempInventorySize: 20,
	}

	s := &server{st: st, cache: c, dice: testutil.NewDice(), announce: &announcer{}}
	s.sched = scheduler.New(logger)
	t.Cleanup(s.sched.Stop)

	bus := event.NewBus(ps, logger)
	board := ranking.NewBoard(c, st, logger)
	chars := character.NewService(st, cat, gameCfg, bus, nil, logger,
		character.WithLeaderboard(board), character.WithDelayer(s.sched))
	dungeons := dungeon.NewService(st, cat, gameCfg, bus, nil, logger,
		dungeon.WithLeaderboard(board), dungeon.WithRoller(s.dice))

	s.sched.AddTicker("ranking_refresh", time.Hour, func(ctx context.Context) error {
		_, err := board.Refresh(ctx)
		return err
	})

	s.r = gin.New()
	s.r.Use(mw.TraceID(), mw.Recovery(logger))
	rest.Mount(s.r.Group("/api"), rest.Handlers{
		Auth:       rest.NewAuthHandler(st, c, sec, logger),
		Characters: rest.NewCharacterHandler(chars, st, logger),
		Dungeons:   rest.NewDungeonHandler(dungeons, logger),
		Ranking:    rest.NewRankingHandler(board, logger),
		Admin:      rest.NewAdminHandler(st, c, s.sched, board, s.announce, nil, logger),
	}, mw.Auth(sec, c), mw.AdminKey(adminKey))
	return s
}

// do sends a JSON request. headers are key/value pairs.
func (s *server) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewReader(b)
	} else {
		buf = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

// as sends a request with a bearer token.
func (s *server) as(token, method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, body, "Authorization", "Bearer "+token)
}

func (s *server) admin(method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, body, mw.AdminKeyHeader, adminKey)
}

// register creates an account and returns its token and user id.
func (s *server) register(t *testing.T, username string) (string, string) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.User.ID
}

// createCharacter creates a character and returns its id.
func (s *server) createCharacter(t *testing.T, token, name, class string) string {
	t.Helper()
	w := s.as(token, http.MethodPost, "/api/characters", map[string]string{"name": name, "class": class})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Character struct {
			ID string `json:"id"`
		} `json:"character"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Character.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
