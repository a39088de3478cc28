// Command quote prints the price of an editing order without starting the server.
//
//	quote -photos 20 -services twilightConversion,decluttering
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/backend-photoedit/internal/pricing"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "quote: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(out)
	photos := fs.Int("photos", 1, "number of photos in the order")
	services := fs.String("services", "", "comma separated optional services ("+serviceList()+")")
	currency := fs.String("currency", "USD", "currency code shown with the amounts")
	asJSON := fs.Bool("json", false, "print the quote as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sel, err := pricing.SelectionOf(parseServices(*services)...)
	if err != nil {
		return err
	}
	q, err := pricing.Compute(*photos, sel)
	if err != nil {
		return err
	}
	view := pricing.NewQuoteView(q, strings.ToUpper(*currency))

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return printTable(out, view)
}

func parseServices(raw string) []pricing.ServiceID {
	var ids []pricing.ServiceID
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, pricing.ServiceID(part))
		}
	}
	return ids
}

func serviceList() string {
	ids := pricing.ServiceIDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != pricing.StandardEditing {
			names = append(names, string(id))
		}
	}
	return strings.Join(names, ", ")
}

func printTable(out io.Writer, v pricing.QuoteView) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SERVICE\tUNIT\tPHOTOS\tSUBTOTAL\n")
	for _, line := range v.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", line.Title, line.UnitPrice, v.PhotoCount, line.Subtotal)
	}
	fmt.Fprintf(tw, "\t\t\t\n")
	fmt.Fprintf(tw, "Subtotal\t\t\t%s\n", v.Subtotal)
	if v.Tier != nil {
		fmt.Fprintf(tw, "%s\t\t\t-%s\n", v.Tier.Label, v.Discount)
	}
	fmt.Fprintf(tw, "Total (%s)\t\t\t%s\n", v.Currency, v.Total)
	return tw.Flush()
}
