package service

import (
	"bytes"
	"certo/internal/config"
	"certo/internal/log"
	"certo/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrTransactionReverted = errors.New("transaction reverted")

// RegistrationRequest carries the escrow terms of a survey
type RegistrationRequest struct {
	SurveyID       string
	TotalPrize     *big.Int // token base units
	MinResponses   int
	MaxResponses   int
	ExpirationTime int64 // unix seconds
}

// SettlementClient performs the two on-chain calls a prize survey needs:
// a token allowance for the escrow contract, then the survey registration.
type SettlementClient interface {
	ApproveToken(ctx context.Context, idempotencyKey string, amount *big.Int) (*model.Receipt, error)
	RegisterSurvey(ctx context.Context, idempotencyKey string, req RegistrationRequest) (*model.Receipt, error)
}

// RelayerClient submits contract calls through an HTTP transaction relayer that
// signs, sends and waits for the receipt. Calls are not retried: a duplicate
// approve or registration costs real tokens.
type RelayerClient struct {
	baseURL        string
	apiKey         string
	surveyContract string
	tokenContract  string
	httpClient     *http.Client
}

// NewRelayerClient creates a relayer client from config
func NewRelayerClient(cfg config.SettlementConfig) *RelayerClient {
	if cfg.APIKey == "" {
		log.Warnf("SETTLEMENT_API_KEY not set")
	}
	return &RelayerClient{
		baseURL:        strings.TrimRight(cfg.RelayerURL, "/"),
		apiKey:         cfg.APIKey,
		surveyContract: cfg.SurveyContract,
		tokenContract:  cfg.TokenContract,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type contractCall struct {
	Contract string   `json:"contract"`
	Method   string   `json:"method"`
	Params   []string `json:"params"`
}

func (c *RelayerClient) ApproveToken(ctx context.Context, idempotencyKey string, amount *big.Int) (*model.Receipt, error) {
	return c.send(ctx, idempotencyKey, contractCall{
		Contract: c.tokenContract,
		Method:   "function approve(address spender, uint256 amount)",
		Params:   []string{c.surveyContract, amount.String()},
	})
}

func (c *RelayerClient) RegisterSurvey(ctx context.Context, idempotencyKey string, req RegistrationRequest) (*model.Receipt, error) {
	return c.send(ctx, idempotencyKey, contractCall{
		Contract: c.surveyContract,
		Method:   "function createSurvey(uint256 _totalPrize, uint256 _minResponses, uint256 _maxResponses, uint256 _expirationTime)",
		Params: []string{
			req.TotalPrize.String(),
			fmt.Sprint(req.MinResponses),
			fmt.Sprint(req.MaxResponses),
			fmt.Sprint(req.ExpirationTime),
		},
	})
}

func (c *RelayerClient) send(ctx context.Context, idempotencyKey string, call contractCall) (*model.Receipt, error) {
	body, err := json.Marshal(call)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log.Printf("[Relayer] %s on %s", call.Method, call.Contract)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relayer request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read relayer response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("relayer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var receipt model.Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	if receipt.Status != "success" {
		return &receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, receipt.TransactionHash)
	}
	return &receipt, nil
}

// TokenAmount converts a prize in whole tokens to base units, truncating any
// precision the token cannot represent.
func TokenAmount(prize float64, decimals int32) *big.Int {
	return decimal.NewFromFloat(prize).Shift(decimals).Truncate(0).BigInt()
}

// settle runs approve then register and returns the resulting settlement state.
// It never returns an error: failures are recorded in the state.
func (s *SurveyService) settle(ctx context.Context, survey *model.Survey) model.Settlement {
	st := survey.Settlement
	st.Attempts++
	st.Error = ""

	key := fmt.Sprintf("%s-%d", survey.ID, st.Attempts)
	amount := TokenAmount(survey.Prize, s.tokenDecimals)

	fail := func(step string, err error) model.Settlement {
		st.Status = model.SettlementFailed
		st.Error = fmt.Sprintf("%s: %v", step, err)
		st.UpdatedAt = s.now().UTC()
		log.Errorf("settlement for survey %s failed at %s: %v", survey.ID, step, err)
		return st
	}

	if st.ApproveTx == "" {
		receipt, err := s.settlement.ApproveToken(ctx, key+"-approve", amount)
		if err != nil {
			return fail("approve", err)
		}
		st.ApproveTx = receipt.TransactionHash
	}

	receipt, err := s.settlement.RegisterSurvey(ctx, key+"-register", RegistrationRequest{
		SurveyID:       survey.ID,
		TotalPrize:     amount,
		MinResponses:   survey.MinAmount,
		MaxResponses:   survey.MaxAmount,
		ExpirationTime: survey.TimeLimit.Unix(),
	})
	if err != nil {
		return fail("register", err)
	}
	st.RegisterTx = receipt.TransactionHash
	st.Status = model.SettlementConfirmed
	st.UpdatedAt = s.now().UTC()
	log.Infof("settlement for survey %s confirmed (approve %s, register %s)", survey.ID, st.ApproveTx, st.RegisterTx)
	return st
}

func initialSettlement(prize float64, enabled bool, now time.Time) model.Settlement {
	st := model.Settlement{UpdatedAt: now.UTC()}
	switch {
	case prize == 0:
		st.Status = model.SettlementNotRequired
	case !enabled:
		st.Status = model.SettlementDisabled
	default:
		st.Status = model.SettlementPending
	}
	return st
}
