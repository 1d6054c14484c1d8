// Package eventimx reconstructs Eventim HTML sales reports into events,
// price-category rows and per-event fee columns.
//
// Quick start:
//
//	f, err := os.Open("sales-report.html")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	report, err := eventimx.ParseHTML(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, ev := range report.Events {
//	    fmt.Println(ev.ID, ev.EventName, len(ev.Rows))
//	}
//
//	out, _ := os.Create("sales-report.xlsx")
//	defer out.Close()
//	eventimx.WriteWorkbook(out, report)
//
// Parsing never fails on odd input: unrecognized fragments are skipped and,
// unless WithoutDiagnostics is given, recorded in Report.Diagnostics.
package eventimx
