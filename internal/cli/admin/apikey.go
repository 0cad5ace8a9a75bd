package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/repository"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func resolveWorkspaceID(ctx context.Context, workspaceRepo *repository.WorkspaceRepository, workspaceRef string) (string, error) {
	if _, err := uuid.Parse(workspaceRef); err == nil {
		workspace, err := workspaceRepo.GetByID(ctx, workspaceRef)
		if err != nil {
			return "", fmt.Errorf("workspace not found: %s", workspaceRef)
		}
		return workspace.ID, nil
	}

	workspace, err := workspaceRepo.GetByName(ctx, workspaceRef)
	if err != nil {
		if err == domain.ErrWorkspaceNotFound {
			return "", fmt.Errorf("workspace not found: %s", workspaceRef)
		}
		return "", err
	}
	return workspace.ID, nil
}

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, and revoke API keys",
	}

	cmd.AddCommand(APIKeyCreateCmd())
	cmd.AddCommand(APIKeyListCmd())
	cmd.AddCommand(APIKeyRevokeCmd())

	return cmd
}

func APIKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for a workspace",
		RunE:  runAPIKeyCreate,
	}

	cmd.Flags().StringP("workspace", "w", "", "Workspace ID or name (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("workspace")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	workspaceRef, _ := cmd.Flags().GetString("workspace")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaceRepo := repository.NewWorkspaceRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(workspaceRepo, apiKeyRepo, uuidGen)

	workspaceID, err := resolveWorkspaceID(ctx, workspaceRepo, workspaceRef)
	if err != nil {
		return err
	}

	plaintext, err := authSvc.CreateAPIKey(ctx, workspaceID, name)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	keys, err := authSvc.ListAPIKeys(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to retrieve created key: %w", err)
	}

	var keyID string
	if len(keys) > 0 {
		keyID = keys[0].ID
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":        keyID,
			"name":      name,
			"workspace": workspaceID,
			"token":     plaintext,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("API key created for workspace %s\n", workspaceID)
		fmt.Printf("Key ID: %s\n", keyID)
		fmt.Printf("Key Name: %s\n", name)
		fmt.Printf("Token: %s\n", plaintext)
		fmt.Println("\n⚠️  Save this token now. You won't be able to see it again!")
	}

	return nil
}

func APIKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for a workspace",
		Long:  "List all API keys for a specific workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceRef, _ := cmd.Flags().GetString("workspace")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAPIKeyList(workspaceRef, outputFormat)
		},
	}

	cmd.Flags().StringP("workspace", "w", "", "Workspace ID or name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func runAPIKeyList(workspaceRef, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaceRepo := repository.NewWorkspaceRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	workspaceID, err := resolveWorkspaceID(ctx, workspaceRepo, workspaceRef)
	if err != nil {
		return err
	}

	keys, err := apiKeyRepo.GetByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list API keys: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(keys))
		for i, key := range keys {
			data[i] = map[string]interface{}{
				"id":           key.ID,
				"name":         key.Name,
				"workspace_id": key.WorkspaceID,
				"created_at":   key.CreatedAt,
				"revoked_at":   key.RevokedAt,
				"revoked":      key.IsRevoked(),
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(keys) == 0 {
			fmt.Printf("No API keys found for workspace %s\n", workspaceID)
			return nil
		}
		fmt.Printf("API keys for workspace %s:\n", workspaceID)
		for _, key := range keys {
			status := "active"
			if key.IsRevoked() {
				status = "revoked"
			}
			fmt.Printf("  %s: %s (%s, created: %s)\n", key.ID, key.Name, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func APIKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runAPIKeyRevoke,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	keyID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	err = apiKeyRepo.Revoke(ctx, keyID)
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":      keyID,
			"revoked": true,
			"message": "API key revoked successfully",
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("API key %s revoked successfully\n", keyID)
	}

	return nil
}
