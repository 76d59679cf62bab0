package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rixian/drive-go/pkg/drive"
)

func newDrivesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drives",
		Short: "Manage drives",
	}

	cmd.AddCommand(newDrivesLsCmd())
	cmd.AddCommand(newDrivesCreateCmd())

	return cmd
}

func newDrivesLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the drives of the tenant",
		Args:  cobra.NoArgs,
		RunE:  runDrivesLs,
	}
}

func newDrivesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new drive",
		Args:  cobra.NoArgs,
		RunE:  runDrivesCreate,
	}

	cmd.Flags().String("controller", "", "drive controller ID (required)")
	cmd.Flags().String("name", "", "drive name (required)")
	cmd.Flags().String("driver-info", "", "driver-specific connection info (required)")
	cmd.Flags().String("trust-level", "", "trust level")
	cmd.Flags().String("partition-label", "", "label of the initial partition")

	return cmd
}

func newPartitionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partitions",
		Short: "Inspect partitions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List the partitions of the tenant",
		Args:  cobra.NoArgs,
		RunE:  runPartitionsLs,
	})

	return cmd
}

func runDrivesLs(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	drives, err := client.ListDrives(cmd.Context(), cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("listing drives: %w", err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, drives)
	}

	rows := make([][]string, len(drives))
	for i := range drives {
		rows[i] = []string{drives[i].ID.String(), drives[i].Name, drives[i].TrustLevel}
	}

	printTable(cc.Out, []string{"ID", "NAME", "TRUST"}, rows)

	return nil
}

func runDrivesCreate(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	flags := cmd.Flags()

	controller, _ := flags.GetString("controller")

	controllerID, err := uuid.Parse(controller)
	if err != nil {
		return fmt.Errorf("invalid --controller %q: %w", controller, err)
	}

	req := &drive.CreateDriveRequest{DriveControllerID: controllerID}
	req.Name, _ = flags.GetString("name")
	req.DriverInfo, _ = flags.GetString("driver-info")
	req.TrustLevel, _ = flags.GetString("trust-level")
	req.PartitionLabel, _ = flags.GetString("partition-label")

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	d, err := client.CreateDrive(cmd.Context(), req, cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("creating drive: %w", err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, d)
	}

	cc.Statusf("Created drive %s (%s)\n", d.Name, d.ID)

	return nil
}

func runPartitionsLs(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	partitions, err := client.ListPartitions(cmd.Context(), cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("listing partitions: %w", err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, partitions)
	}

	rows := make([][]string, len(partitions))
	for i := range partitions {
		p := &partitions[i]
		rows[i] = []string{p.Label, p.ID.String(), p.DriveID.String()}
	}

	printTable(cc.Out, []string{"LABEL", "ID", "DRIVE"}, rows)

	return nil
}
