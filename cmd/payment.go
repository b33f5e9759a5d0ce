package cmd

import (
	"errors"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"viberate/internal/bootstrap"
	"viberate/internal/domain/money"
	"viberate/internal/httpapi"
	"viberate/internal/usecase/assignment"
	paymentuc "viberate/internal/usecase/payment"
)

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Inspect and retry USDC payouts",
}

var paymentHeader = table.Row{"ID", "Assignment", "Recipient", "Amount", "Fee", "Status", "Retries", "Tx"}

func paymentRow(p httpapi.PaymentResponse) table.Row {
	return table.Row{p.ID, p.AssignmentID, p.RecipientID, p.AmountUSDC, p.PlatformFeeUSDC, p.Status, p.RetryCount, deref(p.TransactionHash)}
}

func paymentView(p httpapi.PaymentResponse) view {
	return view{data: p, header: paymentHeader, rows: []table.Row{paymentRow(p)}}
}

var paymentShowCmd = &cobra.Command{
	Use:   "show <payment-id>",
	Short: "Show a payment transaction",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		tx, err := app.Payments.GetTransaction(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, paymentView(httpapi.NewPaymentResponse(tx)))
	}),
}

var paymentForCmd = &cobra.Command{
	Use:   "for <assignment-id>",
	Short: "Show the payment of an assignment",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		tx, err := app.Payments.GetByAssignment(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, paymentView(httpapi.NewPaymentResponse(tx)))
	}),
}

var paymentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payments received by the acting account",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		items, err := app.Payments.ListTransactions(cmd.Context(), actor)
		if err != nil {
			return err
		}
		resp := make([]httpapi.PaymentResponse, 0, len(items))
		rows := make([]table.Row, 0, len(items))
		for _, tx := range items {
			p := httpapi.NewPaymentResponse(tx)
			resp = append(resp, p)
			rows = append(rows, paymentRow(p))
		}
		return render(cmd.OutOrStdout(), outputFormat, view{data: resp, header: paymentHeader, rows: rows})
	}),
}

var paymentRetryCmd = &cobra.Command{
	Use:   "retry <payment-id>",
	Short: "Retry a failed payment",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		sender, _ := cmd.Flags().GetString("sender-wallet-data")
		tx, err := app.Payments.RetryPayment(cmd.Context(), paymentuc.RetryPaymentInput{
			TransactionID:    args[0],
			SenderWalletData: sender,
			ActorID:          actor,
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, paymentView(httpapi.NewPaymentResponse(tx)))
	}),
}

var paymentSettleCmd = &cobra.Command{
	Use:   "settle <assignment-id>",
	Short: "Pay an approved assignment whose payment never completed",
	Long:  "Creates the missing payment of an approved assignment, or processes one left pending. Failed payments use \"payment retry\".",
	Args:  cobra.ExactArgs(1),
	RunE: withSchema(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		actor, err := requireActor()
		if err != nil {
			return err
		}
		input := assignment.SettleInput{ActorID: actor, AssignmentID: args[0]}
		if raw, _ := cmd.Flags().GetString("amount"); strings.TrimSpace(raw) != "" {
			input.Amount, err = money.ParseUSDC(raw)
			if err != nil {
				return err
			}
		}
		input.SenderWalletData, _ = cmd.Flags().GetString("sender-wallet-data")
		tx, err := app.Assignments.SettlePayment(cmd.Context(), input)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, paymentView(httpapi.NewPaymentResponse(tx)))
	}),
}

var paymentPlatformBalanceCmd = &cobra.Command{
	Use:   "platform-balance",
	Short: "Show the USDC balance of the platform wallet",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		walletData := strings.TrimSpace(app.Config.Payment.PlatformWalletData)
		if walletData == "" {
			return errors.New("payment.platform_wallet_data is not configured")
		}
		balance, err := app.Payments.GetBalance(cmd.Context(), walletData)
		if err != nil {
			return err
		}
		amount := money.Format(balance, money.USDCPlaces)
		return render(cmd.OutOrStdout(), outputFormat, view{
			data:   map[string]string{"asset": app.Config.Payment.Asset, "amount": amount},
			header: table.Row{"Asset", "Amount"},
			rows:   []table.Row{{app.Config.Payment.Asset, amount}},
		})
	}),
}

func init() {
	rootCmd.AddCommand(paymentCmd)
	paymentCmd.AddCommand(paymentShowCmd, paymentForCmd, paymentListCmd, paymentRetryCmd, paymentSettleCmd, paymentPlatformBalanceCmd)
	paymentRetryCmd.Flags().String("sender-wallet-data", "", "Sender wallet secret (default payment.platform_wallet_data)")
	paymentSettleCmd.Flags().String("amount", "", "USDC amount; required when no payment was recorded")
	paymentSettleCmd.Flags().String("sender-wallet-data", "", "Sender wallet secret (default: your wallet, then the platform wallet)")
}
