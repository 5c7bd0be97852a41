// Package service implements the producer-side transaction flow: persist
// incoming transactions, compute their history features from storage, call
// the scoring worker and write the probability back.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"fraudscore/internal/domain"
	"fraudscore/internal/features"
	"fraudscore/internal/mq"
	"fraudscore/internal/observability"
	"fraudscore/internal/storage"
)

// historyLimit bounds how many prior transactions feed the history features.
// The rolling statistics use at most 5; the 30-day merchant count needs the
// rest of the window.
const historyLimit = 100

// ScoreCaller issues a correlated scoring call. Satisfied by *mq.Client.
type ScoreCaller interface {
	Score(ctx context.Context, req *domain.ScoreRequest, timeout time.Duration) (*domain.ScoreResponse, error)
}

// Notifier is told about every freshly scored transaction. Satisfied by the
// websocket hub; may be nil.
type Notifier interface {
	NotifyScore(tx *domain.Transaction)
}

// TransactionService orchestrates ingest and scoring of one transaction.
type TransactionService struct {
	users        storage.UserStore
	merchants    storage.MerchantStore
	transactions storage.TransactionStore
	scorer       ScoreCaller
	notifier     Notifier
	callTimeout  time.Duration
	logger       *log.Logger
}

// NewTransactionService wires the service. notifier may be nil; callTimeout
// of zero means the client default.
func NewTransactionService(
	users storage.UserStore,
	merchants storage.MerchantStore,
	transactions storage.TransactionStore,
	scorer ScoreCaller,
	notifier Notifier,
	callTimeout time.Duration,
	logger *log.Logger,
) *TransactionService {
	if logger == nil {
		logger = log.New(os.Stdout, "[transactions] ", log.LstdFlags)
	}
	return &TransactionService{
		users:        users,
		merchants:    merchants,
		transactions: transactions,
		scorer:       scorer,
		notifier:     notifier,
		callTimeout:  callTimeout,
		logger:       logger,
	}
}

// Create persists one incoming transaction and scores it. The transaction
// is stored even when scoring fails; its probability then stays unset until
// a replay. Returns storage.ErrDuplicateKey when trans_num was already
// ingested and storage.ErrInvalidInput on an unusable payload.
func (s *TransactionService) Create(ctx context.Context, in *domain.TransactionInput) (*domain.Transaction, error) {
	txTime, dob, err := validateInput(in)
	if err != nil {
		observability.RecordIngestError("invalid")
		return nil, err
	}

	user, err := s.upsertUser(ctx, in, dob)
	if err != nil {
		observability.RecordIngestError("storage")
		return nil, err
	}
	merchant, err := s.upsertMerchant(ctx, in)
	if err != nil {
		observability.RecordIngestError("storage")
		return nil, err
	}

	tx := &domain.Transaction{
		TransNum:   in.TransNum,
		UserID:     user.ID,
		MerchantID: merchant.ID,
		Amount:     in.Amt,
		Time:       txTime,
		UnixTime:   in.UnixTime,
	}
	if err := s.transactions.Insert(ctx, tx); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordIngestError("duplicate")
			return nil, fmt.Errorf("transaction %s: %w", in.TransNum, err)
		}
		observability.RecordIngestError("storage")
		return nil, fmt.Errorf("insert transaction %s: %w", in.TransNum, err)
	}
	observability.RecordIngest()

	if err := s.scoreAndPersist(ctx, tx, user, merchant, in); err != nil {
		// The transaction is already durable; scoring can be replayed.
		observability.RecordIngestError("score")
		s.logger.Printf("score transaction %s: %v", tx.TransNum, err)
	}
	return tx, nil
}

// Replay ingests like Create, but an already stored transaction is treated
// as work to resume: if its probability is still unset the scoring call is
// retried, otherwise the stored row is returned as is.
func (s *TransactionService) Replay(ctx context.Context, in *domain.TransactionInput) (*domain.Transaction, error) {
	tx, err := s.Create(ctx, in)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, err
	}

	tx, err = s.transactions.GetByTransNum(ctx, in.TransNum)
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", in.TransNum, err)
	}
	if tx.FraudProb != nil {
		return tx, nil
	}

	_, dob, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	user, err := s.upsertUser(ctx, in, dob)
	if err != nil {
		return nil, err
	}
	merchant, err := s.upsertMerchant(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.scoreAndPersist(ctx, tx, user, merchant, in); err != nil {
		return nil, err
	}
	return tx, nil
}

// Get returns a stored transaction by id.
func (s *TransactionService) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}

// scoreAndPersist computes history features for a stored transaction, calls
// the worker and writes the probability back.
func (s *TransactionService) scoreAndPersist(ctx context.Context, tx *domain.Transaction, user *domain.User, merchant *domain.Merchant, in *domain.TransactionInput) error {
	prior, err := s.transactions.PriorTransactions(ctx, user.ID, tx.Time, historyLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	req := &domain.ScoreRequest{
		TransactionID:      tx.TransNum,
		TransDateTransTime: tx.Time.Format("2006-01-02 15:04:05"),
		CCNum:              user.CCNum,
		Merchant:           merchant.Name,
		Category:           merchant.Category,
		Amt:                tx.Amount,
		Gender:             user.Gender,
		State:              user.State,
		Lat:                user.Lat,
		Long:               user.Long,
		CityPop:            user.CityPop,
		Job:                user.Job,
		DOB:                user.DOB.Format("2006-01-02"),
		MerchLat:           in.MerchLat,
		MerchLong:          in.MerchLong,
		HistoryFeatures:    features.ComputeHistory(tx.Amount, tx.Time, prior),
	}

	resp, err := s.scorer.Score(ctx, req, s.callTimeout)
	if err != nil {
		if mq.IsTimeout(err) {
			return fmt.Errorf("scoring call: %w", err)
		}
		return err
	}

	if err := s.transactions.SetFraudProbability(ctx, tx.ID, resp.Probability); err != nil {
		return fmt.Errorf("persist probability: %w", err)
	}
	prob := resp.Probability
	tx.FraudProb = &prob

	if s.notifier != nil {
		s.notifier.NotifyScore(tx)
	}
	return nil
}

// validateInput checks the required fields and parses the two timestamps.
func validateInput(in *domain.TransactionInput) (txTime, dob time.Time, err error) {
	switch {
	case in.TransNum == "":
		err = fmt.Errorf("%w: trans_num is required", storage.ErrInvalidInput)
	case in.CCNum == "":
		err = fmt.Errorf("%w: cc_num is required", storage.ErrInvalidInput)
	case in.Merchant == "":
		err = fmt.Errorf("%w: merchant is required", storage.ErrInvalidInput)
	case in.Amt <= 0:
		err = fmt.Errorf("%w: amt must be positive", storage.ErrInvalidInput)
	}
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	txTime, err = features.ParseTransactionTime(in.TransDateTransTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	dob, err = time.Parse("2006-01-02", in.DOB)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: dob: %v", storage.ErrInvalidInput, err)
	}
	return txTime, dob, nil
}

// upsertUser returns the user for a card number, creating it on first
// sight. A concurrent insert of the same card loses the race and reads the
// winner's row.
func (s *TransactionService) upsertUser(ctx context.Context, in *domain.TransactionInput, dob time.Time) (*domain.User, error) {
	user, err := s.users.GetByCCNum(ctx, in.CCNum)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user = &domain.User{
		CCNum:   in.CCNum,
		First:   in.First,
		Last:    in.Last,
		Gender:  in.Gender,
		Street:  in.Street,
		City:    in.City,
		State:   in.State,
		Zip:     in.Zip,
		Lat:     in.Lat,
		Long:    in.Long,
		CityPop: in.CityPop,
		Job:     in.Job,
		DOB:     dob,
	}
	err = s.users.Insert(ctx, user)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return s.users.GetByCCNum(ctx, in.CCNum)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// upsertMerchant mirrors upsertUser for the counterparty.
func (s *TransactionService) upsertMerchant(ctx context.Context, in *domain.TransactionInput) (*domain.Merchant, error) {
	merchant, err := s.merchants.GetByName(ctx, in.Merchant)
	if err == nil {
		return merchant, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup merchant: %w", err)
	}

	merchant = &domain.Merchant{
		Name:     in.Merchant,
		Category: in.Category,
		Lat:      in.MerchLat,
		Long:     in.MerchLong,
	}
	err = s.merchants.Insert(ctx, merchant)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return s.merchants.GetByName(ctx, in.Merchant)
	}
	if err != nil {
		return nil, fmt.Errorf("insert merchant: %w", err)
	}
	return merchant, nil
}
