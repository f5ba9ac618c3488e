// Package parser は一括追加の貼り付けテキストを構造化候補にパースする機能を提供する。
// パースは純粋関数であり、不正な行は例外ではなくエラーリストとして報告される。
// 人手入力の一括データに対する部分的な失敗許容が設計方針であり、
// 1行の不正が同じ投入内の他の行の処理を妨げることはない。
package parser

import (
	"strings"

	"github.com/hitoshi/chomp/internal/model"
)

const (
	// DefaultDelimiter は行内フィールドの既定の区切り文字。
	DefaultDelimiter = ";"
	// maxFields は1行あたりの最大フィールド数（名前、種別、場所、タグ）。
	maxFields = 4
	// minFields は1行に最低限必要なフィールド数（名前、種別）。
	minFields = 2
)

// Options はパース時の設定パラメータ。
type Options struct {
	// Delimiter はフィールド区切り文字。"|" または ";" を指定する。
	// 空の場合はDefaultDelimiterを使用する。
	Delimiter string
}

// Parse は貼り付けテキスト全体をパースし、構造化候補とパースエラーの一覧を返す。
// 改行で分割し、トリム後に空となる行は無視する。
// 候補の順序は入力行の順序を維持する。
// どのような入力に対しても必ず終了し、パニックを起こさない。
func Parse(raw string, opts Options) ([]model.ParsedItem, []model.ParseError) {
	delimiter := opts.Delimiter
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	var items []model.ParsedItem
	var parseErrors []model.ParseError

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lineNumber := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		item, parseErr := parseLine(trimmed, lineNumber, delimiter)
		if parseErr != nil {
			parseErrors = append(parseErrors, *parseErr)
			continue
		}
		items = append(items, item)
	}

	return items, parseErrors
}

// parseLine は1行をパースしてParsedItemを生成する。
// フィールド数が不足している行はunknownとして扱い、ParseErrorを返す。
func parseLine(line string, lineNumber int, delimiter string) (model.ParsedItem, *model.ParseError) {
	// 最大4フィールドに分割する。タグフィールド内にカンマは許容されるが、
	// 区切り文字自体は4つ目以降のフィールドに現れても分割しない。
	fields := strings.SplitN(line, delimiter, maxFields)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if len(fields) < minFields || fields[0] == "" || fields[1] == "" {
		return model.ParsedItem{}, &model.ParseError{
			LineNumber: lineNumber,
			Message:    "名前と種別の2フィールドが必要です",
			Content:    line,
		}
	}

	item := model.ParsedItem{
		LineNumber: lineNumber,
		Name:       fields[0],
		ItemType:   classifyType(fields[1]),
		Status:     model.ItemStatusPending,
	}

	if len(fields) >= 3 {
		item.LocationText = fields[2]
	}
	if len(fields) >= 4 {
		item.Tags = parseTags(fields[3])
	}

	return item, nil
}

// classifyType は種別フィールドを分類する。
// 大文字小文字を区別せず"dish"と比較し、それ以外はrestaurantとして扱う。
func classifyType(field string) model.ItemType {
	if strings.EqualFold(field, "dish") {
		return model.ItemTypeDish
	}
	return model.ItemTypeRestaurant
}

// parseTags はタグフィールドをカンマで分割し、トリム後に空のタグを除外する。
// タグの順序は入力順を維持する。
func parseTags(field string) []string {
	if field == "" {
		return nil
	}

	var tags []string
	for _, tag := range strings.Split(field, ",") {
		trimmed := strings.TrimSpace(tag)
		if trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
