package neo4jdb

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}

	// The graph store is mandatory; a missing URI fails startup instead of
	// surfacing later as a nil client.
	uri := strings.TrimSpace(os.Getenv("NEO4J_URI"))
	if uri == "" {
		return nil, fmt.Errorf("neo4jdb: NEO4J_URI is required")
	}

	user := strings.TrimSpace(os.Getenv("NEO4J_USER"))
	if user == "" {
		user = "neo4j"
	}
	password := strings.TrimSpace(os.Getenv("NEO4J_PASSWORD"))
	database := strings.TrimSpace(os.Getenv("NEO4J_DATABASE"))

	timeoutSec := 10
	if v := strings.TrimSpace(os.Getenv("NEO4J_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxPool := 50
	if v := strings.TrimSpace(os.Getenv("NEO4J_MAX_POOL_SIZE")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxPool = parsed
		}
	}

	auth := neo4j.BasicAuth(user, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = time.Duration(timeoutSec) * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}

	c := &Client{
		Driver:   driver,
		Database: database,
		log:      log.With("client", "Neo4jDB"),
	}
	c.initSchema(context.Background())
	return c, nil
}

// initSchema creates the uniqueness constraints the taxonomy relies on.
// Best-effort; may fail for restricted users.
func (c *Client) initSchema(ctx context.Context) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT attribute_guid_unique IF NOT EXISTS FOR (a:Attribute) REQUIRE a.guid IS UNIQUE`,
		`CREATE CONSTRAINT attribute_identifier_unique IF NOT EXISTS FOR (a:Attribute) REQUIRE a.identifier IS UNIQUE`,
		`CREATE CONSTRAINT institution_guid_unique IF NOT EXISTS FOR (i:Institution) REQUIRE i.guid IS UNIQUE`,
		`CREATE CONSTRAINT institution_identifier_unique IF NOT EXISTS FOR (i:Institution) REQUIRE i.identifier IS UNIQUE`,
		`CREATE CONSTRAINT person_guid_unique IF NOT EXISTS FOR (p:Person) REQUIRE p.guid IS UNIQUE`,
		`CREATE CONSTRAINT top_level_tag_identifier_unique IF NOT EXISTS FOR (t:TopLevelTag) REQUIRE t.identifier IS UNIQUE`,
		`CREATE CONSTRAINT staging_identifier_unique IF NOT EXISTS FOR (s:Staging) REQUIRE s.identifier IS UNIQUE`,
	}
	for _, q := range stmts {
		if res, err := session.Run(ctx, q, nil); err != nil {
			c.log.Warn("neo4j schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
