package export

import (
	"testing"
	"time"

	"github.com/badgepay/badgepay/internal/models"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStatement(t *testing.T) {
	date := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	transactions := []models.Transaction{
		{ID: "t1", SourceAccountID: "a", DestinationAccountID: "b", SourceCardID: "card-1", Amount: 250, Date: date, Comment: "lunch"},
		{ID: "t2", SourceAccountID: "b", DestinationAccountID: "a", Amount: 1000, Date: date.Add(time.Hour)},
	}

	out, err := BuildStatement("a", transactions, date.Add(2*time.Hour))
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))

	stmt := doc.SelectElement("Statement")
	require.NotNil(t, stmt)
	assert.Equal(t, "a", stmt.SelectAttrValue("accountId", ""))

	rows := stmt.FindElements("./Transactions/Transaction")
	require.Len(t, rows, 2)
	assert.Equal(t, "t1", rows[0].SelectAttrValue("id", ""))
	assert.Equal(t, "250", rows[0].SelectElement("Amount").Text())
	assert.Equal(t, "card-1", rows[0].SelectElement("SourceCard").Text())
	assert.Nil(t, rows[1].SelectElement("SourceCard"))
	assert.Nil(t, rows[1].SelectElement("Comment"))

	assert.Equal(t, "1250", stmt.SelectElement("TotalVolume").Text())
	assert.Equal(t, "2", stmt.FindElement("./Transactions").SelectAttrValue("count", ""))
}

func TestBuildStatementFullLedger(t *testing.T) {
	out, err := BuildStatement("", nil, time.Now())
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	stmt := doc.SelectElement("Statement")
	require.NotNil(t, stmt)
	assert.Empty(t, stmt.SelectAttrValue("accountId", ""))
	assert.Equal(t, "0", stmt.SelectElement("TotalVolume").Text())
}
