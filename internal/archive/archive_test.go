package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

func TestObjectPath(t *testing.T) {
	t.Parallel()

	page := ingest.RawPage{Number: 7}
	assert.Equal(t, "naver/run-1/page-0007.json", ObjectPath("", "naver", "run-1", page))
	assert.Equal(t, "pages/naver/run-1/page-0007.json", ObjectPath("pages", "naver", "run-1", page))
	assert.Equal(t, "pages/naver/run-1/page-0007.json", ObjectPath("/pages/", "naver", "run-1", page))
}

func TestNoopDiscards(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Noop{}.ArchivePage(context.Background(), "naver", "run-1", ingest.RawPage{Number: 1}))
}
