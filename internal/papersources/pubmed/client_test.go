package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/papersources"
)

const esearchResponse = `<?xml version="1.0" encoding="UTF-8"?>
<eSearchResult>
	<Count>42</Count>
	<RetMax>2</RetMax>
	<RetStart>0</RetStart>
	<IdList>
		<Id>31452104</Id>
		<Id>30049270</Id>
	</IdList>
</eSearchResult>`

const esearchEmptyResponse = `<?xml version="1.0" encoding="UTF-8"?>
<eSearchResult>
	<Count>0</Count>
	<RetMax>0</RetMax>
	<RetStart>0</RetStart>
	<IdList></IdList>
	<ErrorList>
		<PhraseNotFound>zxqw nonsense</PhraseNotFound>
	</ErrorList>
</eSearchResult>`

const efetchResponse = `<?xml version="1.0" encoding="UTF-8"?>
<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation>
			<PMID Version="1">31452104</PMID>
			<Article>
				<Journal>
					<JournalIssue>
						<Volume>577</Volume>
						<Issue>7792</Issue>
						<PubDate>
							<Year>2020</Year>
							<Month>Jan</Month>
							<Day>15</Day>
						</PubDate>
					</JournalIssue>
					<Title>Nature</Title>
				</Journal>
				<ArticleTitle>Improved protein structure prediction using potentials from deep learning</ArticleTitle>
				<ELocationID EIdType="doi" ValidYN="Y">10.1038/s41586-019-1923-7</ELocationID>
				<Abstract>
					<AbstractText Label="BACKGROUND">Protein structure prediction is hard.</AbstractText>
					<AbstractText Label="RESULTS">Deep learning improves accuracy.</AbstractText>
				</Abstract>
				<AuthorList CompleteYN="Y">
					<Author ValidYN="Y">
						<LastName>Senior</LastName>
						<ForeName>Andrew W</ForeName>
					</Author>
					<Author ValidYN="Y">
						<CollectiveName>AlphaFold Team</CollectiveName>
					</Author>
					<Author ValidYN="N">
						<LastName>Invalid</LastName>
					</Author>
				</AuthorList>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">31452104</ArticleId>
				<ArticleId IdType="doi">10.1038/s41586-019-1923-7</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
	<PubmedArticle>
		<MedlineCitation>
			<PMID Version="1">30049270</PMID>
			<Article>
				<Journal>
					<JournalIssue>
						<PubDate>
							<MedlineDate>2018 Jul-Aug</MedlineDate>
						</PubDate>
					</JournalIssue>
					<ISOAbbreviation>J Mol Biol</ISOAbbreviation>
				</Journal>
				<ArticleTitle>Protein folding kinetics revisited</ArticleTitle>
				<Abstract>
					<AbstractText>Folding pathways remain a subject of debate.</AbstractText>
				</Abstract>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">30049270</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
</PubmedArticleSet>`

// newTestClient creates a client pointed at a test server with rate
// limits high enough that tests never block.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:   serverURL,
		RateLimit: 1000,
		BurstSize: 1000,
		Enabled:   true,
	}
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		RateLimit: 1000,
		BurstSize: 1000,
	})
	return NewWithHTTPClient(cfg, httpClient)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		if r.URL.Query().Get("term") == "zxqw nonsense" {
			w.Write([]byte(esearchEmptyResponse))
			return
		}
		w.Write([]byte(esearchResponse))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(efetchResponse))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Search(t *testing.T) {
	t.Run("two step search returns mapped papers", func(t *testing.T) {
		server := newTestServer(t)
		client := newTestClient(t, server.URL)

		result, err := client.Search(context.Background(), papersources.SearchParams{
			Query:      "protein folding",
			MaxResults: 2,
		})

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, domain.SourceTypePubMed, result.Source)
		assert.Equal(t, 42, result.TotalResults)
		assert.True(t, result.HasMore)
		assert.Equal(t, 2, result.NextOffset)
		require.Len(t, result.Papers, 2)

		first := result.Papers[0]
		assert.Equal(t, "31452104", first.Identifier)
		assert.Equal(t, domain.SourceTypePubMed, first.Source)
		assert.Equal(t, "Improved protein structure prediction using potentials from deep learning", first.Title)
		assert.Equal(t, []string{"Andrew W Senior", "AlphaFold Team"}, first.Authors)
		assert.Equal(t, "BACKGROUND: Protein structure prediction is hard. RESULTS: Deep learning improves accuracy.", first.Abstract)
		assert.Equal(t, "Nature", first.Journal)
		assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/31452104/", first.Link)
		assert.Equal(t, "10.1038/s41586-019-1923-7", first.DOI)
		require.NotNil(t, first.PublishedAt)
		assert.Equal(t, 2020, first.PublishedAt.Year())
		assert.Equal(t, time.January, first.PublishedAt.Month())
		assert.Equal(t, 15, first.PublishedAt.Day())

		second := result.Papers[1]
		assert.Equal(t, "30049270", second.Identifier)
		assert.Equal(t, "J Mol Biol", second.Journal)
		assert.Empty(t, second.Authors)
		require.NotNil(t, second.PublishedAt)
		assert.Equal(t, 2018, second.PublishedAt.Year())
	})

	t.Run("phrase not found returns empty result without error", func(t *testing.T) {
		server := newTestServer(t)
		client := newTestClient(t, server.URL)

		result, err := client.Search(context.Background(), papersources.SearchParams{
			Query: "zxqw nonsense",
		})

		require.NoError(t, err)
		assert.Empty(t, result.Papers)
		assert.Equal(t, 0, result.TotalResults)
		assert.False(t, result.HasMore)
	})

	t.Run("disabled source returns error", func(t *testing.T) {
		client := New(Config{Enabled: false})

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "anything"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disabled")
	})

	t.Run("api error surfaces as source api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad request", http.StatusBadRequest)
		}))
		t.Cleanup(server.Close)

		client := newTestClient(t, server.URL)
		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "protein"})

		require.Error(t, err)
		var apiErr *domain.SourceAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.False(t, apiErr.IsTransient())
	})
}

func TestClient_GetByID(t *testing.T) {
	t.Run("returns paper for known pmid", func(t *testing.T) {
		server := newTestServer(t)
		client := newTestClient(t, server.URL)

		paper, err := client.GetByID(context.Background(), "31452104")

		require.NoError(t, err)
		assert.Equal(t, "31452104", paper.Identifier)
	})

	t.Run("returns not found for missing pmid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/xml")
			w.Write([]byte(`<?xml version="1.0"?><PubmedArticleSet></PubmedArticleSet>`))
		}))
		t.Cleanup(server.Close)

		client := newTestClient(t, server.URL)
		_, err := client.GetByID(context.Background(), "99999999")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestExtractPublicationDate(t *testing.T) {
	t.Run("prefers article date", func(t *testing.T) {
		article := Article{
			ArticleDate: []ArticleDate{{DateType: "Electronic", Year: "2021", Month: "06", Day: "03"}},
			Journal: Journal{JournalIssue: JournalIssue{
				PubDate: PubDate{Year: "2020"},
			}},
		}

		got := extractPublicationDate(article)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2021, time.June, 3, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("parses medline date", func(t *testing.T) {
		article := Article{
			Journal: Journal{JournalIssue: JournalIssue{
				PubDate: PubDate{MedlineDate: "2019 Jan-Feb"},
			}},
		}

		got := extractPublicationDate(article)
		require.NotNil(t, got)
		assert.Equal(t, 2019, got.Year())
	})

	t.Run("year only falls back to january first", func(t *testing.T) {
		article := Article{
			Journal: Journal{JournalIssue: JournalIssue{
				PubDate: PubDate{Year: "2017", Season: "Spring"},
			}},
		}

		got := extractPublicationDate(article)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("no date returns nil", func(t *testing.T) {
		assert.Nil(t, extractPublicationDate(Article{}))
	})
}
