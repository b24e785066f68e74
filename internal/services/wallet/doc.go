/*
Package wallet manages student wallets and the transaction ledger behind
them.

A wallet holds no balance column. Its balance is the sum of its signed
transactions, and every mutation runs under a row lock on the wallet:

	// Credit a student
	txn, err := svc.Deposit(ctx, wallet.OperationRequest{
	    StudentID: 42,
	    Amount:    decimal.RequireFromString("100.00"),
	})

	// Debit a student
	txn, err = svc.Withdraw(ctx, wallet.OperationRequest{StudentID: 42, Amount: amount})

	// Admin credit with an audit reason
	txn, err = svc.ManualDeposit(ctx, admin, 42, amount, "compensation")

Other services post ledger entries inside their own transactions through
Ledger:

	err := store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
	    l := wallet.NewLedger(tx, clk, cfg)
	    w, err := l.LockWallet(ctx, studentID)
	    if err != nil {
	        return err
	    }
	    _, err = l.Debit(ctx, w, wallet.Entry{Type: models.TransactionTypePurchase, Amount: price})
	    return err
	})

Balance reads through GetBalance may be served from a short-lived cache.
Decisions made inside a transaction always use Ledger.Balance.

Metrics:

The service collects metrics for:
- Operation durations
- Cache hit/miss rates
- Transaction volumes
- Error rates
*/
package wallet
