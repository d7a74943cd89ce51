package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestRead(t *testing.T) {
	in := strings.Join([]string{
		"merchant,date,amount,category,need,note,extra",
		"Swiggy,2024-03-01,399.50,Dining,want,late dinner,x",
		"BigBasket,2024-03-02,1200,Groceries,NEED,,",
		"Rent Co,2024-03-03,15000,Rent,1,,",
		"Zomato,2024-03-04,250,Dining,,,",
		"Bad Date,2024-13-01,10,Dining,want,,",
		"Zero,2024-03-05,0,Dining,want,,",
		",2024-03-06,10,Dining,want,,",
		"Neg,2024-03-07,-5,Dining,want,,",
		"",
		"Cafe,2024-03-08,1.005,Coffee,true,,",
	}, "\n")

	res, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 5)

	first := res.Transactions[0]
	assert.Equal(t, "Swiggy", first.Merchant)
	assert.Equal(t, "2024-03-01", first.Date.String())
	assert.Equal(t, 399.5, first.Amount)
	assert.Equal(t, "late dinner", first.Note)
	assert.False(t, first.Need)

	assert.True(t, res.Transactions[1].Need)
	assert.True(t, res.Transactions[2].Need)
	assert.False(t, res.Transactions[3].Need, "blank need cell reads as want")
	assert.Equal(t, 1.01, res.Transactions[4].Amount)
	assert.True(t, res.Transactions[4].Need)

	lines := make([]int, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		lines = append(lines, s.Line)
	}
	assert.Equal(t, []int{6, 7, 8, 9}, lines)
	assert.Contains(t, res.Skipped[0].Error(), "line 6")
}

func TestRead_NeedColumnMissingDefaultsToNeed(t *testing.T) {
	res, err := Read(strings.NewReader("date,amount,category,merchant\n2024-03-01,10,Dining,Cafe\n"))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.True(t, res.Transactions[0].Need)
	assert.Empty(t, res.Skipped)
}

func TestRead_BadInput(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("date,amount,merchant\n2024-03-01,10,Cafe\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"category"`)
}

func TestRead_BareQuoteSkipsLine(t *testing.T) {
	in := "date,amount,category,merchant\n2024-03-01,1\"0,Dining,Cafe\n2024-03-02,20,Dining,Cafe\n"
	res, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Line)
}

func TestWriteThenRead(t *testing.T) {
	txns := []core.Transaction{
		{Date: core.NewDate(2024, 3, 9), Amount: 120, Category: "Dining", Merchant: "Blue Tokai", Note: "coffee, beans", Need: false},
		{Date: core.NewDate(2024, 3, 1), Amount: 15000.5, Category: "Rent", Merchant: "Landlord", Need: true},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, txns))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,amount,category,merchant,note,need", lines[0])
	assert.Equal(t, `2024-03-09,120.00,Dining,Blue Tokai,"coffee, beans",want`, lines[1])
	assert.Equal(t, "2024-03-01,15000.50,Rent,Landlord,,need", lines[2])

	res, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	for i := range txns {
		assert.Equal(t, txns[i].Date.String(), res.Transactions[i].Date.String())
		assert.Equal(t, txns[i].Amount, res.Transactions[i].Amount)
		assert.Equal(t, txns[i].Note, res.Transactions[i].Note)
		assert.Equal(t, txns[i].Need, res.Transactions[i].Need)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 3, 31, 18, 4, 5, 0, time.UTC)
	assert.Equal(t, "expenses_20240331_180405.csv", ExportFilename("", now))
	assert.Equal(t, "expenses_2024-03_20240331_180405.csv", ExportFilename("2024-03", now))
}
