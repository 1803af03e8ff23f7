package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/internal/monitor"
	"github.com/mesh-intelligence/mdrimport/internal/schema"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// sourcePlan is the YAML document printed by "mdrimport plan".
type sourcePlan struct {
	SourceID     int      `yaml:"source_id"`
	Database     string   `yaml:"database"`
	IECStorage   string   `yaml:"iec_storage"`
	Capabilities []string `yaml:"capabilities"`
	Tables       []string `yaml:"tables"`
}

func newPlanCmd() *cobra.Command {
	var sourceID int
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the normalized tables a source would get",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, sourceID)
		},
	}
	cmd.Flags().IntVar(&sourceID, "source", 0, "source id")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func runPlan(cmd *cobra.Command, sourceID int) error {
	_, cfg, err := resolveConfig()
	if err != nil {
		return sysError(err)
	}

	db, err := database.OpenMonitor(cmd.Context(), cfg)
	if err != nil {
		return sysError(err)
	}
	defer db.Close()

	src, err := monitor.NewStore(db).FetchSource(cmd.Context(), sourceID)
	if err != nil {
		return userError(err)
	}

	out, err := yaml.Marshal(newSourcePlan(src))
	if err != nil {
		return sysError(fmt.Errorf("marshal plan: %w", err))
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func newSourcePlan(src types.Source) sourcePlan {
	p := sourcePlan{
		SourceID:   src.ID,
		Database:   src.DatabaseName,
		IECStorage: src.ActiveIEC().String(),
		Tables:     schema.Plan(src),
	}
	for _, c := range src.Capabilities.List() {
		p.Capabilities = append(p.Capabilities, c.String())
	}
	return p
}
