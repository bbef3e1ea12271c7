// Package store provides integration tests against a SurrealDB container.
package store

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"testing"
	"time"

	"github.com/lettervault/lettervault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testDimension = 8

var testClient *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testClient, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Index:     "letters",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test index: %v", err)
	}

	if err := testClient.InitSchema(ctx, testDimension); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testClient.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// axisEmbedding returns a unit vector along one axis, so cosine
// similarity between records is exactly 0 or 1.
func axisEmbedding(axis int) []float32 {
	embedding := make([]float32, testDimension)
	embedding[axis%testDimension] = 1
	return embedding
}

// blendEmbedding returns a normalized blend of two axes for mid-range
// similarity scores.
func blendEmbedding(a, b int, weight float64) []float32 {
	embedding := make([]float32, testDimension)
	embedding[a%testDimension] = float32(weight)
	embedding[b%testDimension] = float32(math.Sqrt(1 - weight*weight))
	return embedding
}

func record(stem string, index, year int, content string, embedding []float32) models.ChunkRecord {
	rec := models.NewChunkRecord(models.Chunk{
		Content: content,
		Source:  stem + ".pdf",
		Year:    year,
		Index:   index,
	}, stem, embedding)
	return rec
}

func TestUpsertAndQuery(t *testing.T) {
	ctx := context.Background()

	records := []models.ChunkRecord{
		record("1999", 0, 1999, "we bought more Coca-Cola", axisEmbedding(0)),
		record("1999", 1, 1999, "float grew substantially", axisEmbedding(1)),
		record("2008", 0, 2008, "be fearful when others are greedy", axisEmbedding(2)),
	}
	require.NoError(t, testClient.UpsertBatch(ctx, records))

	matches, err := testClient.Query(ctx, QueryOptions{
		Vector: axisEmbedding(0),
		TopK:   3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, "we bought more Coca-Cola", matches[0].Content)
	assert.Equal(t, "1999.pdf", matches[0].Source)
	assert.Equal(t, 1999, matches[0].Year)
	assert.InDelta(t, 1.0, matches[0].Score, 0.001)

	// Descending score order.
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestQueryYearFilter(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, testClient.UpsertBatch(ctx, []models.ChunkRecord{
		record("1984", 0, 1984, "textile economics", blendEmbedding(0, 1, 0.9)),
		record("1985", 0, 1985, "textile closing", blendEmbedding(0, 1, 0.88)),
	}))

	year := 1984
	matches, err := testClient.Query(ctx, QueryOptions{
		Vector: blendEmbedding(0, 1, 0.9),
		TopK:   5,
		Year:   &year,
	})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.Equal(t, 1984, m.Year)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()

	rec := record("1990", 0, 1990, "first version", axisEmbedding(3))
	require.NoError(t, testClient.UpsertBatch(ctx, []models.ChunkRecord{rec}))

	before, err := testClient.CountChunks(ctx, "1990.pdf")
	require.NoError(t, err)

	// Same deterministic ID: re-ingestion overwrites, never duplicates.
	rec.Content = "second version"
	require.NoError(t, testClient.UpsertBatch(ctx, []models.ChunkRecord{rec}))

	after, err := testClient.CountChunks(ctx, "1990.pdf")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	matches, err := testClient.Query(ctx, QueryOptions{Vector: axisEmbedding(3), TopK: 1})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "second version", matches[0].Content)
}

func TestUpsertBatchTooLarge(t *testing.T) {
	records := make([]models.ChunkRecord, MaxBatchSize+1)
	for i := range records {
		records[i] = record("big", i, 2000, "x", axisEmbedding(i))
	}
	err := testClient.UpsertBatch(context.Background(), records)
	assert.Error(t, err)
}

func TestQueryInvalidTopK(t *testing.T) {
	_, err := testClient.Query(context.Background(), QueryOptions{
		Vector: axisEmbedding(0),
		TopK:   0,
	})
	assert.Error(t, err)
}

func TestDeleteStaleTrimsTail(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, testClient.UpsertBatch(ctx, []models.ChunkRecord{
		record("trim", 0, 1970, "kept", axisEmbedding(5)),
		record("trim", 1, 1970, "stale", axisEmbedding(6)),
		record("trim", 2, 1970, "stale", axisEmbedding(7)),
	}))
	require.NoError(t, testClient.DeleteStale(ctx, "trim.pdf", 1))

	count, err := testClient.CountChunks(ctx, "trim.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteStaleRemovesSource(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, testClient.UpsertBatch(ctx, []models.ChunkRecord{
		record("gone", 0, 1970, "ephemeral", axisEmbedding(5)),
	}))
	require.NoError(t, testClient.DeleteStale(ctx, "gone.pdf", 0))

	count, err := testClient.CountChunks(ctx, "gone.pdf")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteStaleNegativeKeep(t *testing.T) {
	err := testClient.DeleteStale(context.Background(), "trim.pdf", -1)
	assert.Error(t, err)
}
