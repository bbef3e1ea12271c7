package store

import "fmt"

// schemaSQL returns the chunk table schema for the given embedding
// dimension. The HNSW index dimension must match the embedder's output
// exactly; the embedder validates vectors per call.
func schemaSQL(dimension int) string {
	return fmt.Sprintf(`
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS source ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS year ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS chunk_index ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS page ON chunk TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS section ON chunk TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_source ON chunk FIELDS source;
    DEFINE INDEX IF NOT EXISTS chunk_year ON chunk FIELDS year;
    DEFINE INDEX IF NOT EXISTS chunk_embedding ON chunk FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`, dimension)
}
