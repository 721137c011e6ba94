package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/pkg/config"
	"github.com/swfung/dualcannon/pkg/httputil"
	"github.com/swfung/dualcannon/pkg/logger"
)

// Universe scrapes the exchange board listing pages into the tradable
// symbol pool, keeping main-board A shares only.
type Universe struct {
	http    *httputil.Client
	listURL string
	logger  *logger.Logger
}

// NewUniverse creates a board-listing universe source.
func NewUniverse(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Universe {
	return &Universe{
		http:    httpClient,
		listURL: cfg.Feed.BoardListURL,
		logger:  log,
	}
}

// ListSymbols fetches the listing pages until an empty page and
// returns normalized main-board symbols.
func (u *Universe) ListSymbols(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var symbols []string

	for page := 1; ; page++ {
		pageSymbols, err := u.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(pageSymbols) == 0 {
			break
		}

		for _, s := range pageSymbols {
			if seen[s] {
				continue
			}
			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	u.logger.WithField("count", len(symbols)).Info("Universe loaded")
	return symbols, nil
}

// fetchPage parses one listing page. Codes live in the first cell of
// each row of the quote table.
func (u *Universe) fetchPage(ctx context.Context, page int) ([]string, error) {
	url := fmt.Sprintf("%s?page=%d", u.listURL, page)

	resp, err := u.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("board list page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("board list page %d: status %d", page, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read board list page %d: %w", page, err)
	}

	return ParseBoardList(string(body)), nil
}

// ParseBoardList extracts main-board symbols from a listing page.
func ParseBoardList(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var symbols []string
	doc.Find("table.quote-table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}

		code := strings.TrimSpace(cells.First().Text())
		symbol := contracts.NormalizeSymbol(code)
		if symbol == "" || !contracts.IsMainBoard(symbol) {
			return
		}
		symbols = append(symbols, symbol)
	})
	return symbols
}
