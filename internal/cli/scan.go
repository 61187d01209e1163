package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/appmigrate/internal/catalog"
	"github.com/danieljhkim/appmigrate/internal/engine"
	"github.com/danieljhkim/appmigrate/internal/persist"
)

var (
	scanSite   string
	scanApps   []string
	scanOutput string
	scanFormat string
)

var scanSiteCmd = &cobra.Command{
	Use:   "scan-site",
	Short: "Inventory the apps, modules and DocTypes of a site",
	Long: `Read the DocType catalog of a site and report which app owns each DocType.

Per-DocType read failures are recorded in the inventory and do not stop the scan.
--site is a site name in the bench, or the path of a site snapshot file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, err := openSite(ctx, scanSite)
		if err != nil {
			return err
		}
		defer closeSite(client)

		result, err := newEngine(client).Scan(ctx, &engine.ScanRequest{
			Site: scanSite,
			Apps: scanApps,
		})
		if err != nil {
			return err
		}

		docs := newDocuments()
		return writeDocument(scanOutput, scanFormat, result.Inventory,
			func(path string, f persist.Format) error {
				return docs.SaveInventory(path, result.Inventory, f)
			},
			func() { printInventory(result.Inventory, result.Stats) },
		)
	},
}

func printInventory(inv *catalog.Inventory, stats catalog.Stats) {
	PrintSection(fmt.Sprintf("Site %s", inv.Site))
	PrintLabelValue("Apps", strconv.Itoa(stats.Apps))
	PrintLabelValue("DocTypes", strconv.Itoa(stats.DocTypes))
	PrintLabelValue("Child tables", strconv.Itoa(stats.Tables))
	PrintLabelValue("Fields", strconv.Itoa(stats.Fields))
	PrintLabelValue("Custom fields", strconv.Itoa(stats.CustomFields))
	if stats.Orphans > 0 {
		PrintLabelValueWithColor("Orphans", strconv.Itoa(stats.Orphans), warningColor)
	}

	if len(inv.Groups) == 0 {
		PrintEmptyState("No apps found.")
		return
	}

	fmt.Fprintln(out)
	rows := make([][]string, 0, len(inv.Groups))
	for _, g := range inv.Groups {
		rows = append(rows, []string{g.Name, strings.Join(g.Modules, ", "), strconv.Itoa(len(g.Entities))})
	}
	PrintTable([]string{"APP", "MODULES", "DOCTYPES"}, rows)

	if len(inv.Errors) > 0 {
		fmt.Fprintln(out)
		PrintWarning(fmt.Sprintf("%s could not be read completely", PrintCount(len(inv.Errors), "DocType", "DocTypes")))
		items := make([]string, 0, len(inv.Errors))
		for _, e := range inv.Errors {
			items = append(items, fmt.Sprintf("%s (%s): %s", e.Entity, e.Kind, e.Error))
		}
		PrintList(items, 1)
	}
}

func init() {
	scanSiteCmd.Flags().StringVarP(&scanSite, "site", "s", "", "Site name or snapshot file")
	scanSiteCmd.Flags().StringSliceVarP(&scanApps, "apps", "a", nil, "Apps to scan (default all)")
	scanSiteCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Write the inventory to this file")
	scanSiteCmd.Flags().StringVarP(&scanFormat, "format", "f", "", "Output format: json, yaml or text")
	_ = scanSiteCmd.MarkFlagRequired("site")
}
