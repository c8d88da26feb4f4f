package ingest

import "github.com/cognicore/ticketlens/pkg/ticketlens/model"

// ArticleText is the searchable text of a KB article: title, plain body and category.
func ArticleText(a model.KnowledgeArticle) string {
	return a.Title + " " + PlainText(a.Body) + " " + a.Category
}

// ArticleHeadline is the short form used when matching against a single ticket.
func ArticleHeadline(a model.KnowledgeArticle) string {
	return a.Title + " " + a.Category
}

// ScriptText is the searchable text of an agent script.
func ScriptText(s model.Script) string {
	return s.Title + " " + s.Purpose + " " + s.Text
}

// TicketText is the text a ticket contributes to similarity queries.
func TicketText(t model.Ticket) string {
	return t.Subject + " " + t.Description
}
