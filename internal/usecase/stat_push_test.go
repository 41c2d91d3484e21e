package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/V4T54L/hookwatch/internal/adapter/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type pushRecord struct {
	path, auth string
	body       map[string]int
}

func TestStatPusher_Run(t *testing.T) {
	var mu sync.Mutex
	var got []pushRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got = append(got, pushRecord{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		mu.Unlock()
		if r.URL.Path == "/broken/42" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dirs := []StatDirectory{
		{Name: "a", URLTemplate: srv.URL + "/a/%s", Token: "tok-a", Body: func(s Stats) any {
			return map[string]int{"server_count": s.GuildCount, "shard_count": s.ShardCount}
		}},
		{Name: "broken", URLTemplate: srv.URL + "/broken/%s", Token: "tok-b", Body: func(s Stats) any {
			return map[string]int{"guildCount": s.GuildCount}
		}},
		{Name: "disabled", URLTemplate: srv.URL + "/disabled/%s", Token: "", Body: func(s Stats) any { return nil }},
		{Name: "c", URLTemplate: srv.URL + "/c/%s", Token: "tok-c", Body: func(s Stats) any {
			return map[string]int{"guildCount": s.GuildCount}
		}},
	}
	source := StatsFunc(func(context.Context) (Stats, error) {
		return Stats{BotID: "42", GuildCount: 1234, ShardCount: 2}, nil
	})
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	pusher := NewStatPusher(source, dirs, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)), m)

	if err := pusher.Run(context.Background()); err != nil {
		t.Fatalf("expected a failing directory to be non-fatal, got %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 pushes (disabled skipped), got %d: %+v", len(got), got)
	}
	if got[0].path != "/a/42" || got[0].auth != "tok-a" || got[0].body["server_count"] != 1234 || got[0].body["shard_count"] != 2 {
		t.Errorf("unexpected first push: %+v", got[0])
	}
	if got[2].path != "/c/42" || got[2].body["guildCount"] != 1234 {
		t.Errorf("expected the directory after the failure to be pushed, got %+v", got[2])
	}
}

func TestStatPusher_SourceError(t *testing.T) {
	source := StatsFunc(func(context.Context) (Stats, error) { return Stats{}, errors.New("not ready") })
	pusher := NewStatPusher(source, DefaultDirectories("t", "t", "t"), http.DefaultClient, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	if err := pusher.Run(context.Background()); err == nil {
		t.Fatal("expected the source error to be returned")
	}
}

func TestDefaultDirectories(t *testing.T) {
	dirs := DefaultDirectories("a", "", "c")
	if len(dirs) != 3 {
		t.Fatalf("expected 3 directories, got %d", len(dirs))
	}
	if dirs[1].Token != "" {
		t.Error("expected discord.bots.gg to be disabled without a token")
	}
	body, _ := json.Marshal(dirs[2].Body(Stats{GuildCount: 7, ShardCount: 3}))
	if string(body) != `{"guildCount":7}` {
		t.Errorf("unexpected bots.ondiscord.xyz body: %s", body)
	}
}
