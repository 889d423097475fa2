package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// OfflineCompleter produces deterministic rule-based text from the request
// payload. It is used when no provider key is configured.
type OfflineCompleter struct{}

func (OfflineCompleter) Name() string { return "offline" }

func (OfflineCompleter) Complete(_ context.Context, req Request) (string, error) {
	switch req.Kind {
	case KindOverview, KindQuestion:
		p, _ := req.Payload.(*marketPayload)
		return ruleBasedOverview(p), nil
	case KindEarnings:
		p, _ := req.Payload.(*earningsPayload)
		return ruleBasedEarnings(p), nil
	case KindDocument:
		return ruleBasedDocument(req.User), nil
	case KindTranslate:
		return "(offline, not translated) " + Truncate(req.User, 40) + "…", nil
	}
	return "", fmt.Errorf("offline: unsupported kind %q", req.Kind)
}

func fmtPct(x *float64) string {
	if x == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *x*100)
}

func fmtNum(x *float64) string {
	if x == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *x)
}

func ruleBasedOverview(p *marketPayload) string {
	if p == nil {
		p = &marketPayload{}
	}
	trend := "range-bound"
	if r := p.Momentum.ThreeMonthReturn; r != nil {
		switch {
		case *r > 0.05:
			trend = "clearly rising"
		case *r < -0.05:
			trend = "clearly falling"
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Stock analysis (rule-based, no LLM configured)\n\n**%s (%s)**\n\n", p.Name, p.Symbol)
	b.WriteString("### 1. Valuation\n")
	fmt.Fprintf(&b, "- Latest price: %s\n- Trailing PE: %s\n- Forward PE: %s\n- Price to book: %s\n\n",
		fmtNum(p.Valuation.LatestPrice), fmtNum(p.Valuation.TrailingPE), fmtNum(p.Valuation.ForwardPE), fmtNum(p.Valuation.PriceToBook))
	b.WriteString("### 2. Momentum\n")
	fmt.Fprintf(&b, "- 1M return: %s\n- 3M return: %s → **%s**\n", fmtPct(p.Momentum.OneMonthReturn), fmtPct(p.Momentum.ThreeMonthReturn), trend)
	if p.LatestMA != nil {
		fmt.Fprintf(&b, "- MA5 / MA10 / MA20: %s / %s / %s\n", fmtNum(p.LatestMA.MA5), fmtNum(p.LatestMA.MA10), fmtNum(p.LatestMA.MA20))
	}
	if p.Risk != nil {
		fmt.Fprintf(&b, "- Max drawdown over the range: %.2f%%\n", p.Risk.MaxDrawdown)
	}
	b.WriteString("\n### 3. Rules of thumb\n")
	b.WriteString("- A positive 3M return suggests buyers are in control.\n")
	b.WriteString("- A forward PE below the trailing PE implies the market expects earnings growth.\n")
	b.WriteString("- A negative 3M return warns of a possible downtrend.\n\n")
	b.WriteString("_Generated from rules and templates because no LLM provider is configured._\n")
	if p.Question != "" {
		fmt.Fprintf(&b, "\nYour question: “%s”\n", p.Question)
	}
	return b.String()
}

func ruleBasedEarnings(p *earningsPayload) string {
	var b strings.Builder
	sym := ""
	if p != nil {
		sym = p.Symbol
	}
	fmt.Fprintf(&b, "## Earnings highlights (rule-based)\n\nStock: %s\n\n", sym)
	if p != nil && len(p.Quarters) >= 2 {
		last, prev := p.Quarters[len(p.Quarters)-1], p.Quarters[len(p.Quarters)-2]
		if last.Revenue != nil && prev.Revenue != nil {
			dir := "below"
			if *last.Revenue >= *prev.Revenue {
				dir = "above"
			}
			fmt.Fprintf(&b, "- Latest quarterly revenue is %s the previous quarter.\n", dir)
		}
		if last.NetIncome != nil && prev.NetIncome != nil && *last.NetIncome < *prev.NetIncome {
			b.WriteString("- Net income fell quarter on quarter; watch earnings stability.\n")
		}
	}
	b.WriteString("- Revenue above the prior quarter is usually read as positive.\n")
	b.WriteString("- An improving gross margin points to better cost control.\n\n")
	b.WriteString("_Rule-based output; no LLM read the filings._\n")
	return b.String()
}

func ruleBasedDocument(text string) string {
	words := len(strings.Fields(text))
	lower := strings.ToLower(text)
	var found []string
	for _, k := range []string{"guidance", "revenue", "margin", "profit"} {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	kw := "none"
	if len(found) > 0 {
		kw = strings.Join(found, ", ")
	}
	return fmt.Sprintf("## Document summary (rule-based)\n\n- Length: about %d words (%d characters).\n- Finance keywords found: %s\n\n_No LLM configured, so only rough statistics are available._\n",
		words, utf8.RuneCountInString(text), kw)
}
