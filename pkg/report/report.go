package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
	"github.com/aporia-ai/vmsearch/pkg/logger"
	"github.com/aporia-ai/vmsearch/pkg/search"
)

// FetchProgress returns a progress bar over the provider fetches and the
// callback that advances it.
func FetchProgress(providers int) (*progressbar.ProgressBar, func(search.FetchEvent)) {
	bar := progressbar.NewOptions(providers,
		progressbar.OptionSetDescription("Fetching catalogs..."),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(15),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(200*time.Millisecond),
	)
	if err := bar.RenderBlank(); err != nil {
		logger.Debug(err)
	}
	return bar, func(ev search.FetchEvent) {
		if ev.Err != nil {
			logger.Warnf("%s catalog unavailable: %s", ev.Provider, ev.Err)
		}
		if err := bar.Add(1); err != nil {
			logger.Error(err)
		}
	}
}

// DisplayResults renders instances as a table, in the order given.
func DisplayResults(w io.Writer, instances []catalog.NormalizedInstance) {
	if len(instances) == 0 {
		fmt.Fprintln(w, "No instance matches the given criteria.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Provider", "Instance Type", "Region", "Pricing", "vCPU", "RAM (GB)", "GPU", "Price/hour (USD)", "Price/month (USD)"})
	table.SetAutoWrapText(false)

	for _, inst := range instances {
		table.Append([]string{
			string(inst.Provider),
			inst.InstanceType,
			inst.Region,
			string(inst.PricingModel),
			fmt.Sprintf("%v", inst.VCPU),
			humanize.Ftoa(inst.RAMGB),
			gpuColumn(inst),
			humanize.FormatFloat("#,###.####", inst.TotalPricePerHour),
			humanize.FormatFloat("#,###.##", inst.TotalPricePerHour*catalog.HoursPerMonth),
		})
	}
	table.Render()
	fmt.Fprintf(w, "%s instances\n", humanize.Comma(int64(len(instances))))
}

func gpuColumn(inst catalog.NormalizedInstance) string {
	if !inst.HasGPU() {
		return "-"
	}
	return fmt.Sprintf("%dx %s", inst.GPUCount, inst.GPUType)
}

// DisplayAliases renders the alias table, one row per family.
func DisplayAliases(w io.Writer, table *gpualias.Table) {
	fmt.Fprintf(w, "GPU alias table version %s\n", table.Version())
	out := tablewriter.NewWriter(w)
	out.SetHeader([]string{"Family", "VRAM (GB)", "Aliases", "AWS Families", "GCP"})
	out.SetAutoWrapText(false)

	for _, f := range table.Families() {
		codes := lo.Keys(f.AWSFamilies)
		sort.Strings(codes)
		gcp := append(append([]string{}, f.GCPAccelerators...), f.GCPMachinePrefixes...)
		out.Append([]string{
			f.Name,
			humanize.Ftoa(f.VRAMGB),
			strings.Join(f.Aliases, ", "),
			strings.Join(codes, ", "),
			strings.Join(gcp, ", "),
		})
	}
	out.Render()
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "could not encode output")
}
