package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/badgepay/badgepay/internal/models"
	"github.com/beevik/etree"
)

// BuildStatement renders ledger rows as an XML audit statement. accountID is
// empty for a full-ledger export.
func BuildStatement(accountID string, transactions []models.Transaction, generatedAt time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	stmt := doc.CreateElement("Statement")
	stmt.CreateAttr("generatedAt", generatedAt.Format(time.RFC3339))
	if accountID != "" {
		stmt.CreateAttr("accountId", accountID)
	}

	var total int64
	list := stmt.CreateElement("Transactions")
	for _, t := range transactions {
		el := list.CreateElement("Transaction")
		el.CreateAttr("id", t.ID)
		el.CreateElement("Source").SetText(t.SourceAccountID)
		el.CreateElement("Destination").SetText(t.DestinationAccountID)
		if t.SourceCardID != "" {
			el.CreateElement("SourceCard").SetText(t.SourceCardID)
		}
		el.CreateElement("Amount").SetText(strconv.FormatInt(t.Amount, 10))
		el.CreateElement("Date").SetText(t.Date.Format(time.RFC3339))
		if t.Comment != "" {
			el.CreateElement("Comment").SetText(t.Comment)
		}
		total += t.Amount
	}
	list.CreateAttr("count", strconv.Itoa(len(transactions)))
	stmt.CreateElement("TotalVolume").SetText(strconv.FormatInt(total, 10))

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize statement: %w", err)
	}
	return out, nil
}
