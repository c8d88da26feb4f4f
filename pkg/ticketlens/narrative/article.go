package narrative

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/stoplist"
)

// Article is a KB draft generated for a cluster.
type Article struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Source   string   `json:"source"`
}

// Draft is an article together with its compliance review.
type Draft struct {
	Article    Article    `json:"article"`
	Compliance Compliance `json:"compliance"`
}

var clusterPrefix = regexp.MustCompile(`^[^:]+:\s*`)

// DraftArticle writes a KB article for the named cluster from its member tickets and
// runs the compliance check on the result. A Completer reply is used when it carries
// a title and more than 200 characters of content.
func (a *Analyzer) DraftArticle(ctx context.Context, clusterName string, tickets []model.Ticket) Draft {
	category := model.GeneralModule
	if len(tickets) > 0 && tickets[0].Category != "" {
		category = tickets[0].Category
	}
	var resolved []model.Ticket
	for _, t := range tickets {
		if t.Resolution != "" {
			resolved = append(resolved, t)
		}
	}

	var article Article
	if a.opts.Completer != nil && len(tickets) > 0 {
		if out, ok := a.completeArticle(ctx, clusterName, category, resolved); ok {
			article = out
		}
	}
	if article.Source == "" {
		article = a.articleFromData(clusterName, category, tickets, resolved)
	}
	return Draft{Article: article, Compliance: CheckCompliance(article.Content)}
}

func (a *Analyzer) completeArticle(ctx context.Context, clusterName, category string, resolved []model.Ticket) (Article, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s KB article for: %q\n\n", a.opts.ProductName, clusterName)
	for i, t := range resolved {
		if i == 4 {
			break
		}
		fmt.Fprintf(&b, "[%d] Issue: %s\n    Fix: %s\n", i+1, truncate(t.Description, 150), truncate(t.Resolution, 150))
	}
	fmt.Fprintf(&b, "\nReturn JSON: {\"title\":\"How to...\",\"summary\":\"...\",\"category\":%q,\"content\":\"markdown article\",\"tags\":[]}", category)

	reply, err := a.opts.Completer.Chat(ctx, systemPrompt, b.String())
	if err != nil {
		a.opts.Logger.WithError(err).Warn("article completion failed, using data draft")
		return Article{}, false
	}
	var out Article
	if !decodeObject(reply, &out) || out.Title == "" || len(out.Content) <= 200 {
		a.opts.Logger.WithField("reply_len", len(reply)).Warn("article completion unusable, using data draft")
		return Article{}, false
	}
	out.Source = SourceLLM
	return out, true
}

func (a *Analyzer) articleFromData(clusterName, category string, tickets, resolved []model.Ticket) Article {
	product := a.opts.ProductName
	n := len(tickets)

	subjects := distinct(tickets, func(t model.Ticket) string { return t.Subject }, 8)
	resolutions := distinct(resolved, func(t model.Ticket) string { return t.Resolution }, 6)

	var steps []string
	seen := make(map[string]struct{})
	for _, r := range resolutions {
		for _, s := range sentenceBreak.Split(r, -1) {
			s = strings.TrimSpace(s)
			if len(s) <= 20 || len(s) >= 150 {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			steps = append(steps, s)
		}
	}
	if len(steps) > 8 {
		steps = steps[:8]
	}

	var tierSum, escalated int
	for _, t := range tickets {
		tierSum += t.TierLevel()
		if t.TierLevel() >= model.EscalatedTier {
			escalated++
		}
	}
	avgTier := 0.0
	if n > 0 {
		avgTier = math.Round(float64(tierSum)/float64(n)*10) / 10
	}
	eta := "45+ minutes (may require escalation)"
	switch {
	case avgTier <= 1.5:
		eta = "5-15 minutes"
	case avgTier <= 2.5:
		eta = "15-45 minutes"
	}

	cleanName := clusterPrefix.ReplaceAllString(clusterName, "")
	var c strings.Builder
	c.WriteString("## Overview\n\n")
	fmt.Fprintf(&c, "This article addresses a recurring issue in the **%s** module of %s, identified through automated root cause analysis of %d support cases. Average support tier: %s.\n\n", category, product, n, formatTier(avgTier))
	fmt.Fprintf(&c, "**Module:** %s\n", category)
	fmt.Fprintf(&c, "**Estimated resolution time:** %s\n\n", eta)

	c.WriteString("## Symptoms\n\nAgents should apply this article when the customer reports any of the following:\n\n")
	for i, s := range subjects {
		fmt.Fprintf(&c, "%d. %s\n", i+1, s)
	}
	fmt.Fprintf(&c, "\nThese symptoms typically occur during standard %s operations and may affect single or multiple properties.\n\n", strings.ToLower(category))

	c.WriteString("## Prerequisites\n\nBefore beginning troubleshooting:\n")
	fmt.Fprintf(&c, "- Confirm the customer's %s edition\n", product)
	c.WriteString("- Verify the user has appropriate role permissions in Admin > User Management\n")
	fmt.Fprintf(&c, "- Check the %s status page for any active incidents\n", product)
	c.WriteString("- Note the customer's property name and account for reference\n\n")

	c.WriteString("## Resolution Steps\n\n")
	if len(steps) > 0 {
		for i, s := range steps {
			fmt.Fprintf(&c, "**Step %d.** %s\n\n", i+1, s)
		}
	} else {
		fmt.Fprintf(&c, "**Step 1.** Navigate to the %s module in %s\n\n", category, product)
		fmt.Fprintf(&c, "**Step 2.** Review the current configuration under Admin > Module Settings > %s\n\n", category)
		c.WriteString("**Step 3.** Check for any pending operations or open batches that may be blocking the workflow\n\n")
		c.WriteString("**Step 4.** If a configuration mismatch is identified, update the settings and save\n\n")
		c.WriteString("**Step 5.** Ask the customer to retry the operation and confirm the issue is resolved\n\n")
	}

	c.WriteString("## Verification\n\nAfter applying the resolution:\n")
	c.WriteString("1. Have the customer attempt the original operation again\n")
	fmt.Fprintf(&c, "2. Verify no error messages appear in the %s module\n", category)
	fmt.Fprintf(&c, "3. Check the %s system log for any new errors (Admin > Diagnostics > System Log)\n", product)
	c.WriteString("4. Confirm the expected data has been updated correctly\n\n")

	c.WriteString("## Escalation Criteria\n\nEscalate to **Tier 3 (Engineering)** if:\n")
	c.WriteString("- The above steps do not resolve the issue within 30 minutes\n")
	c.WriteString("- Error logs indicate database-level inconsistency\n")
	c.WriteString("- Multiple properties or accounts are affected simultaneously\n")
	c.WriteString("- The customer reports data loss or corruption\n\n")
	c.WriteString("When escalating, attach the system log export, a screenshot of the error, property and account details, and the steps already attempted.\n\n")

	c.WriteString("## Related Information\n\n")
	fmt.Fprintf(&c, "- **Module:** %s\n", category)
	fmt.Fprintf(&c, "- **Source data:** %d analyzed tickets (%d with documented resolutions)\n", n, len(resolved))
	fmt.Fprintf(&c, "- **Escalation rate:** %d%% of cases required Tier 3\n", pct(escalated, n))

	return Article{
		Title:    "Resolving " + truncate(cleanName, 60),
		Summary:  fmt.Sprintf("Step-by-step resolution guide for %s. Covers %d symptom variations across %d %s support cases.", cleanName, len(subjects), n, product),
		Category: category,
		Content:  c.String(),
		Tags:     tags(tickets, 5),
		Source:   SourceData,
	}
}

func distinct(tickets []model.Ticket, field func(model.Ticket) string, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tickets {
		v := field(t)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

// tags returns the most frequent words longer than three letters across subjects and
// descriptions, skipping stop words.
func tags(tickets []model.Ticket, limit int) []string {
	stops := stoplist.Default()
	var words []string
	for _, t := range tickets {
		for _, w := range strings.Fields(strings.ToLower(t.Subject + " " + t.Description)) {
			if len(w) > 3 && !stops.IsStop(w) {
				words = append(words, w)
			}
		}
	}
	out := []string{}
	for i, f := range rank(words) {
		if i == limit {
			break
		}
		out = append(out, f.value)
	}
	return out
}
