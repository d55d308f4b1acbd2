package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tetuya0525/article-ingest-service/internal/article"
)

func doc(id string, status article.Status, createdAt time.Time) article.Document {
	return article.Document{
		ID:         id,
		Title:      "title-" + id,
		SourceType: "web",
		Content:    article.Content{RawText: "text"},
		Status:     status,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestInsertAndGetArticle(t *testing.T) {
	t.Parallel()

	s := New()
	d := doc("a", article.StatusReceived, time.Unix(100, 0).UTC())
	require.NoError(t, s.InsertArticle(context.Background(), d))

	got, err := s.GetArticle(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, d, got)
}

func TestInsertArticleRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	s := New()
	d := doc("a", article.StatusReceived, time.Unix(100, 0).UTC())
	require.NoError(t, s.InsertArticle(context.Background(), d))
	require.Error(t, s.InsertArticle(context.Background(), d))
}

func TestGetArticleNotFound(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.GetArticle(context.Background(), "missing")
	require.ErrorIs(t, err, article.ErrNotFound)
}

func TestListArticlesOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	s := New()
	require.NoError(t, s.InsertArticle(context.Background(), doc("old", article.StatusReceived, time.Unix(100, 0).UTC())))
	require.NoError(t, s.InsertArticle(context.Background(), doc("new", article.StatusReceived, time.Unix(200, 0).UTC())))

	got, err := s.ListArticles(context.Background(), article.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "new", got[0].ID)
	require.Equal(t, "old", got[1].ID)
}

func TestListArticlesFiltersByStatus(t *testing.T) {
	t.Parallel()

	s := New()
	require.NoError(t, s.InsertArticle(context.Background(), doc("a", article.StatusReceived, time.Unix(100, 0).UTC())))
	require.NoError(t, s.InsertArticle(context.Background(), doc("b", article.StatusEnriched, time.Unix(200, 0).UTC())))

	got, err := s.ListArticles(context.Background(), article.ListFilter{Status: article.StatusEnriched, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0].ID)
}

func TestListArticlesOffsetAndLimit(t *testing.T) {
	t.Parallel()

	s := New()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.InsertArticle(
			context.Background(),
			doc(id, article.StatusReceived, time.Unix(int64(100+i), 0).UTC()),
		))
	}

	got, err := s.ListArticles(context.Background(), article.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0].ID)

	got, err = s.ListArticles(context.Background(), article.ListFilter{Offset: 5})
	require.NoError(t, err)
	require.Empty(t, got)
}
