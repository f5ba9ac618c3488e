// Package places は外部の場所検索APIとの連携機能を提供する。
// 名前と場所の自由テキストから候補を検索するクライアントと、
// 選択した候補の住所・座標・郵便番号を取得するリゾルバを含む。
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Client は場所検索APIのクライアント。
// 検索エンドポイントと詳細取得エンドポイントを呼び出す。
// リトライは行わない（リトライの判断は上位レイヤーの責務）。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string // 空の場合はキーなしで呼び出す
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはタイムアウト設定済みのクライアントを渡すこと。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// searchResponse は検索エンドポイントのレスポンス。
type searchResponse struct {
	Results []searchResult `json:"results"`
}

// searchResult は検索結果の1候補。
type searchResult struct {
	PlaceID     string `json:"place_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// detailsResponse は詳細取得エンドポイントのレスポンス。
type detailsResponse struct {
	Result detailsResult `json:"result"`
}

// detailsResult は場所詳細の本体。
type detailsResult struct {
	PlaceID           string             `json:"place_id"`
	FormattedAddress  string             `json:"formatted_address"`
	AddressComponents []addressComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

// addressComponent は住所構成要素。typesにpostal_codeを含む要素から郵便番号を抽出する。
type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// SearchResult は検索APIが返した候補1件を表す。
type SearchResult struct {
	PlaceID     string
	Name        string
	Description string
}

// PlaceDetails は詳細取得APIの結果を表す。
type PlaceDetails struct {
	PlaceID          string
	FormattedAddress string
	Latitude         float64
	Longitude        float64
	PostalCode       string
	Phone            string
	Website          string
}

// Search は名前と場所のクエリで場所候補を検索する。
// 結果が空配列の場合は一致なしを意味する（エラーではない）。
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	reqURL, err := c.buildURL("/places/search", url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		c.logger.Error("場所検索APIの呼び出しに失敗しました",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("場所検索APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("検索レスポンスのパースに失敗しました: %w", err)
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, SearchResult{
			PlaceID:     r.PlaceID,
			Name:        r.Name,
			Description: r.Description,
		})
	}

	return results, nil
}

// Details は選択した候補の場所詳細を取得する。
// 郵便番号はaddress_componentsから抽出し、存在しない場合は空文字列となる。
func (c *Client) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if placeID == "" {
		return nil, fmt.Errorf("place_idが空です")
	}

	reqURL, err := c.buildURL("/places/details", url.Values{"place_id": {placeID}})
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		c.logger.Error("場所詳細APIの呼び出しに失敗しました",
			slog.String("place_id", placeID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	var resp detailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("場所詳細APIのレスポンスのパースに失敗しました",
			slog.String("place_id", placeID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("詳細レスポンスのパースに失敗しました: %w", err)
	}

	details := &PlaceDetails{
		PlaceID:          resp.Result.PlaceID,
		FormattedAddress: resp.Result.FormattedAddress,
		Latitude:         resp.Result.Geometry.Location.Lat,
		Longitude:        resp.Result.Geometry.Location.Lng,
		PostalCode:       extractPostalCode(resp.Result.AddressComponents),
		Phone:            resp.Result.Phone,
		Website:          resp.Result.Website,
	}

	return details, nil
}

// buildURL はベースURLとパス、クエリパラメータからリクエストURLを構築する。
func (c *Client) buildURL(path string, params url.Values) (string, error) {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	reqURL.RawQuery = params.Encode()

	return reqURL.String(), nil
}

// get はGETリクエストを実行し、レスポンスボディを返す。
// 200以外のステータスはエラーとして扱う。
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Chomp/1.0 Bulk Add")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("場所APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	return body, nil
}

// extractPostalCode はaddress_componentsから郵便番号を抽出する。
// typesにpostal_codeを含む最初の要素のlong_nameを返す。見つからない場合は空文字列。
func extractPostalCode(components []addressComponent) string {
	for _, comp := range components {
		for _, t := range comp.Types {
			if t == "postal_code" {
				return comp.LongName
			}
		}
	}
	return ""
}
