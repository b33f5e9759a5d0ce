package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"viberate/internal/bootstrap"
	"viberate/internal/httpapi"
	"viberate/internal/usecase/account"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage researcher and annotator accounts",
}

func accountView(a httpapi.AccountResponse) view {
	return view{
		data:   a,
		header: table.Row{"ID", "Username", "Role", "Wallet", "Rating", "Completed"},
		rows:   []table.Row{{a.ID, a.Username, a.Role, a.WalletAddress, a.Rating, a.TasksCompleted}},
	}
}

var accountRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an account",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		username, _ := cmd.Flags().GetString("username")
		role, _ := cmd.Flags().GetString("role")
		wallet, _ := cmd.Flags().GetString("wallet")
		a, err := app.Accounts.Register(cmd.Context(), account.RegisterInput{
			Username:      username,
			Role:          role,
			WalletAddress: wallet,
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, accountView(httpapi.NewAccountResponse(a)))
	}),
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the acting account",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		a, err := app.Accounts.GetAccount(cmd.Context(), actor)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, accountView(httpapi.NewAccountResponse(a)))
	}),
}

var accountTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for the acting account",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		if _, err := app.Accounts.GetAccount(cmd.Context(), actor); err != nil {
			return err
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := httpapi.IssueToken(app.Config.HTTP.JWTSecret, actor, ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	}),
}

var accountConnectWalletCmd = &cobra.Command{
	Use:   "connect-wallet <address>",
	Short: "Connect or replace the wallet address",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		walletData, _ := cmd.Flags().GetString("wallet-data")
		a, err := app.Accounts.ConnectWallet(cmd.Context(), account.ConnectWalletInput{
			ActorID:    actor,
			Address:    args[0],
			WalletData: walletData,
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, accountView(httpapi.NewAccountResponse(a)))
	}),
}

var accountProvisionWalletCmd = &cobra.Command{
	Use:   "provision-wallet",
	Short: "Create a custodial wallet through the wallet provider",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		network, _ := cmd.Flags().GetString("network")
		a, err := app.Accounts.ProvisionWallet(cmd.Context(), account.ProvisionWalletInput{ActorID: actor, Network: network})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, accountView(httpapi.NewAccountResponse(a)))
	}),
}

var accountDisconnectWalletCmd = &cobra.Command{
	Use:   "disconnect-wallet",
	Short: "Remove the wallet from the acting account",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		a, err := app.Accounts.DisconnectWallet(cmd.Context(), actor)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, accountView(httpapi.NewAccountResponse(a)))
	}),
}

var accountBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the wallet balance",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		b, err := app.Accounts.Balance(cmd.Context(), actor)
		if err != nil {
			return err
		}
		resp := httpapi.NewBalanceResponse(b)
		return render(cmd.OutOrStdout(), outputFormat, view{
			data:   resp,
			header: table.Row{"Address", "Asset", "Amount", "Fetched", "Stale"},
			rows:   []table.Row{{resp.Address, resp.Asset, resp.Amount, resp.FetchedAt.Format(time.RFC3339), resp.Stale}},
		})
	}),
}

var accountTransfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "List on-chain transfers of the wallet",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		items, err := app.Accounts.TransferHistory(cmd.Context(), actor)
		if err != nil {
			return err
		}
		resp := httpapi.NewTransferResponses(items)
		rows := make([]table.Row, 0, len(resp))
		for _, r := range resp {
			rows = append(rows, table.Row{r.TxHash, r.From, r.To, r.Amount, r.Asset, r.Status})
		}
		return render(cmd.OutOrStdout(), outputFormat, view{
			data:   resp,
			header: table.Row{"Tx", "From", "To", "Amount", "Asset", "Status"},
			rows:   rows,
		})
	}),
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(
		accountRegisterCmd,
		accountShowCmd,
		accountTokenCmd,
		accountConnectWalletCmd,
		accountProvisionWalletCmd,
		accountDisconnectWalletCmd,
		accountBalanceCmd,
		accountTransfersCmd,
	)

	accountRegisterCmd.Flags().String("username", "", "Unique username")
	accountRegisterCmd.Flags().String("role", "annotator", "researcher|annotator")
	accountRegisterCmd.Flags().String("wallet", "", "Wallet address (0x...)")
	_ = accountRegisterCmd.MarkFlagRequired("username")

	accountTokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime; 0 never expires")
	accountConnectWalletCmd.Flags().String("wallet-data", "", "Provider wallet secret when the wallet is custodial")
	accountProvisionWalletCmd.Flags().String("network", "", "Network (default payment.network)")
}
