package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/V4T54L/hookwatch/internal/adapter/metrics"
)

// Stats is the snapshot pushed to bot directories.
type Stats struct {
	BotID      string
	GuildCount int
	ShardCount int
}

// StatsSource supplies the current stats.
type StatsSource interface {
	Stats(ctx context.Context) (Stats, error)
}

// StatsFunc adapts a function to StatsSource.
type StatsFunc func(ctx context.Context) (Stats, error)

func (f StatsFunc) Stats(ctx context.Context) (Stats, error) { return f(ctx) }

// StatDirectory is one listing site that accepts stat pushes.
type StatDirectory struct {
	Name        string
	URLTemplate string // %s is replaced by the bot id
	Token       string
	Body        func(Stats) any
}

// DefaultDirectories returns the known directories with their tokens.
// A directory with an empty token is skipped on every push.
func DefaultDirectories(topGGToken, discordBotsGGToken, botsOnDiscordToken string) []StatDirectory {
	return []StatDirectory{
		{
			Name:        "top.gg",
			URLTemplate: "https://top.gg/api/bots/%s/stats",
			Token:       topGGToken,
			Body: func(s Stats) any {
				return map[string]int{"server_count": s.GuildCount, "shard_count": s.ShardCount}
			},
		},
		{
			Name:        "discord.bots.gg",
			URLTemplate: "https://discord.bots.gg/api/v1/bots/%s/stats",
			Token:       discordBotsGGToken,
			Body: func(s Stats) any {
				return map[string]int{"guildCount": s.GuildCount, "shardCount": s.ShardCount}
			},
		},
		{
			Name:        "bots.ondiscord.xyz",
			URLTemplate: "https://bots.ondiscord.xyz/bot-api/bots/%s/guilds",
			Token:       botsOnDiscordToken,
			Body: func(s Stats) any {
				return map[string]int{"guildCount": s.GuildCount}
			},
		},
	}
}

// StatPusher posts stats to every configured directory. A failing
// directory is logged and does not affect the others.
type StatPusher struct {
	source      StatsSource
	directories []StatDirectory
	client      *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewStatPusher creates a StatPusher.
func NewStatPusher(source StatsSource, directories []StatDirectory, client *http.Client, logger *slog.Logger, m *metrics.Metrics) *StatPusher {
	return &StatPusher{
		source:      source,
		directories: directories,
		client:      client,
		logger:      logger.With("component", "stat_push"),
		metrics:     m,
	}
}

func (p *StatPusher) Name() string { return "stat_push" }

// Run pushes one snapshot. Only a failure to obtain the stats is returned.
func (p *StatPusher) Run(ctx context.Context) error {
	stats, err := p.source.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	for _, dir := range p.directories {
		if dir.Token == "" {
			continue
		}
		if err := p.push(ctx, dir, stats); err != nil {
			p.logger.Warn("stat push failed", "directory", dir.Name, "error", err)
			p.observe(dir.Name, "error")
			continue
		}
		p.logger.Debug("stats pushed", "directory", dir.Name, "guild_count", stats.GuildCount)
		p.observe(dir.Name, "ok")
	}
	return nil
}

func (p *StatPusher) push(ctx context.Context, dir StatDirectory, stats Stats) error {
	payload, err := json.Marshal(dir.Body(stats))
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	url := fmt.Sprintf(dir.URLTemplate, stats.BotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", dir.Token)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned %d", dir.Name, resp.StatusCode)
	}
	return nil
}

func (p *StatPusher) observe(directory, status string) {
	if p.metrics != nil {
		p.metrics.StatPushes.WithLabelValues(directory, status).Inc()
	}
}
