// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は面接の自由記述欄（会社名・職種・ステータス・メモ）から
// HTMLマークアップを除去し、プレーンテキストとして保存できる形にする。
// リマインダーメールはプレーンテキストで送信するため、タグは一切許可しない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト化のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize は全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// script, styleタグは中身ごと除去される。
	// 文字実体参照は元の文字に戻す（"AT&amp;T" は "AT&T" になる）。
	// 戻した結果がタグになる場合（"&lt;b&gt;"）はそれも除去する。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーは並行利用に対して安全。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerServiceを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はエスケープの入れ子を剥がす回数の上限。
const maxSanitizePasses = 8

// Sanitize はタグを除去したプレーンテキストを返す。
// 除去と実体参照の復元を、結果が変わらなくなるまで繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	text := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			break
		}
		text = next
	}
	// 上限に達しても復元後のタグを残さない
	if strings.Contains(text, "<") && html.UnescapeString(s.policy.Sanitize(text)) != text {
		text = strings.NewReplacer("<", "", ">", "").Replace(text)
	}
	return strings.TrimSpace(text)
}
