package ai

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrQuestionRejected wraps the guard's message when a question is refused.
var ErrQuestionRejected = errors.New("question rejected")

type GuardLevel string

const (
	GuardOK     GuardLevel = "ok"
	GuardWarn   GuardLevel = "warn"
	GuardReject GuardLevel = "reject"
)

// GuardVerdict is the outcome of ReviewQuestion. Message is shown to the
// user; SystemHint is appended to the system prompt.
type GuardVerdict struct {
	Level      GuardLevel `json:"level"`
	Reason     string     `json:"reason"`
	Message    string     `json:"message,omitempty"`
	SystemHint string     `json:"-"`
}

var (
	financeKeywordsZH = []string{"營收", "獲利", "毛利", "淨利", "成長", "估值", "本益比", "股價", "股息", "配息", "現金流", "財報", "季度", "展望", "風險"}
	financeKeywordsEN = []string{"revenue", "profit", "margin", "guidance", "valuation", "dividend", "eps", "cash flow", "earnings", "quarter", "risk", "growth",
		"price", "stock", "share", "trend", "volume", "moving average", "rsi", "momentum", "pe"}

	yearRe     = regexp.MustCompile(`(?:19|20)\d{2}`)
	readableRe = regexp.MustCompile(`[A-Za-z0-9\x{4e00}-\x{9fff}]`)
)

const minReadableShare = 0.35

// ReviewQuestion screens a follow-up question before it reaches the model.
// Empty, very short and mostly-symbol questions are rejected. Questions with
// no finance vocabulary, or that mention years outside dataYears, pass with
// a warning and a hint for the model.
func ReviewQuestion(question string, dataYears []int) GuardVerdict {
	q := CleanText(question)
	if q == "" {
		return GuardVerdict{Level: GuardReject, Reason: "empty", Message: "The question is empty. Please describe what you want analysed."}
	}
	n := utf8.RuneCountInString(q)
	if n <= 3 {
		return GuardVerdict{Level: GuardReject, Reason: "too_short",
			Message: "The question is too short. Try naming a period, valuation, the financial report or a risk you care about."}
	}
	if share := float64(len(readableRe.FindAllString(q, -1))) / float64(n); share < minReadableShare {
		return GuardVerdict{Level: GuardReject, Reason: "gibberish",
			Message: "The question looks like random characters. Please rephrase it."}
	}

	var warns, hints []string
	if !hasFinanceKeyword(q) {
		warns = append(warns, "This question has no obvious stock, price or financial-report keywords. "+
			"It will be answered from a general angle, but this tool is meant for stock and earnings analysis.")
		hints = append(hints, "If the question is not directly about stocks, financial reports or markets, "+
			"first explain what this tool is for, then answer briefly; if it is entirely unrelated, politely decline.")
	}

	if outside := yearsOutside(q, dataYears); len(outside) > 0 {
		lo, hi := minMax(dataYears)
		warns = append(warns, fmt.Sprintf("The question mentions %v, outside the available data (about %d to %d). "+
			"The answer will stick to the years that are covered.", outside, lo, hi))
		hints = append(hints, "The question refers to years outside the data range. State the covered range first, "+
			"reason only from available data, and do not invent figures or events for missing years.")
	}

	if len(warns) == 0 {
		return GuardVerdict{Level: GuardOK, Reason: "pass"}
	}
	return GuardVerdict{
		Level:      GuardWarn,
		Reason:     "warn",
		Message:    strings.Join(warns, "\n\n"),
		SystemHint: strings.Join(hints, "\n"),
	}
}

func hasFinanceKeyword(q string) bool {
	for _, kw := range financeKeywordsZH {
		if strings.Contains(q, kw) {
			return true
		}
	}
	lower := strings.ToLower(q)
	for _, kw := range financeKeywordsEN {
		if len(kw) <= 3 {
			// short tokens must stand alone: "pe" should not match "people"
			for _, w := range strings.FieldsFunc(lower, func(r rune) bool { return !(r >= 'a' && r <= 'z') }) {
				if w == kw {
					return true
				}
			}
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func yearsOutside(q string, dataYears []int) []int {
	if len(dataYears) == 0 {
		return nil
	}
	lo, hi := minMax(dataYears)
	seen := map[int]bool{}
	var out []int
	for _, m := range yearRe.FindAllString(q, -1) {
		y, _ := strconv.Atoi(m)
		if (y < lo || y > hi) && !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out
}

func minMax(xs []int) (int, int) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
