package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/beaconchat/beacon/internal/config"
	"github.com/beaconchat/beacon/internal/repository"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func WorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
		Long:  "Create and list workspaces",
	}

	cmd.AddCommand(WorkspaceCreateCmd())
	cmd.AddCommand(WorkspaceListCmd())

	return cmd
}

func WorkspaceCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new workspace",
		Long:  "Create a new workspace with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE:  runWorkspaceCreate,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runWorkspaceCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaceRepo := repository.NewWorkspaceRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(workspaceRepo, nil, uuidGen)

	workspace, err := authSvc.CreateWorkspace(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         workspace.ID,
			"name":       workspace.Name,
			"created_at": workspace.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Workspace created: %s (%s)\n", workspace.Name, workspace.ID)
	}

	return nil
}

func WorkspaceListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all workspaces",
		Long:  "List all workspaces in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runWorkspaceList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runWorkspaceList(outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaceRepo := repository.NewWorkspaceRepository(pool)

	workspaces, err := workspaceRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(workspaces))
		for i, workspace := range workspaces {
			data[i] = map[string]interface{}{
				"id":         workspace.ID,
				"name":       workspace.Name,
				"created_at": workspace.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(workspaces) == 0 {
			fmt.Println("No workspaces found")
			return nil
		}
		fmt.Println("Workspaces:")
		for _, workspace := range workspaces {
			fmt.Printf("  %s: %s (created: %s)\n", workspace.ID, workspace.Name, workspace.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
