package eventimx_test

import (
	"fmt"
	"time"

	"github.com/crimson-sun/eventimx/pkg/eventimx"
)

func Example() {
	tokens := []eventimx.Token{
		{Text: "42", Emphasized: true},
		{Text: "01.02.23 19:30"},
		{Text: "Show\n1 / Hall\nStreet 1"},
		{Text: "Grundpreis", Emphasized: true},
		{Text: "VIP"},
		{Text: "10,00"},
		{Text: "5"},
	}

	ref := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	report := eventimx.Parse(tokens, eventimx.WithReferenceTime(ref))

	for _, ev := range report.Events {
		fmt.Println(ev.ID, ev.EventName, ev.Location, ev.Date.Format("2006-01-02 15:04"))
		for _, row := range ev.Rows {
			fmt.Print(row.PriceCategory)
			for _, f := range row.Fees {
				fmt.Printf(" %s=%g", f.Name, f.Value)
			}
			fmt.Println()
		}
	}
	// Output:
	// 42 Show Hall 2023-02-01 19:30
	// VIP Einzel Endpreis=10 Anzahl Tickets=5
}
