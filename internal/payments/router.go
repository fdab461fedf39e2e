package payments

import (
	"context"
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/yourorg/payment-router/internal/apierror"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/storage"
)

// RouteConnector finalizes the routing decision. Single pins the attempt to
// the named connector; Routing resolves the merchant's configured algorithm
// to Single; Multiple passes through untouched since the deciding operation
// already enumerated the list. A broken routing configuration is an internal
// error, never a caller error.
func RouteConnector(ctx context.Context, svc *Service, merchant storage.MerchantAccount, pd *PaymentData, ct ConnectorCallType) (ConnectorCallType, error) {
	switch ct.Kind {
	case CallKindSingle:
		pd.Attempt.Connector = ct.Single.Name
		return ct, nil

	case CallKindMultiple:
		return ct, nil

	case CallKindRouting:
		if len(merchant.RoutingAlgorithm) == 0 {
			return ConnectorCallType{}, apierror.Internal(
				fmt.Sprintf("merchant %s has no routing algorithm configured", merchant.MerchantID), nil)
		}
		rule, err := parseRoutingRule(merchant.RoutingAlgorithm)
		if err != nil {
			return ConnectorCallType{}, apierror.Internal("unparseable routing algorithm", err)
		}
		if rule.Type != "single" {
			return ConnectorCallType{}, apierror.Internal(
				fmt.Sprintf("unsupported routing algorithm type %q", rule.Type), nil)
		}
		if rule.Condition != "" {
			ok, err := evaluateRoutingGuard(rule.Condition, pd)
			if err != nil {
				return ConnectorCallType{}, apierror.Internal("routing guard evaluation failed", err)
			}
			if !ok {
				return ConnectorCallType{}, apierror.Internal(
					fmt.Sprintf("routing guard %q rejected the payment", rule.Condition), nil)
			}
		}
		cd, err := svc.Registry.GetConnectorByName(rule.Data, connector.GetTokenConnector)
		if err != nil {
			return ConnectorCallType{}, apierror.Internal("routing algorithm names an unknown connector", err)
		}
		pd.Attempt.Connector = cd.Name
		return CallSingle(cd), nil

	default:
		return ConnectorCallType{}, apierror.Internal(fmt.Sprintf("unknown call type %q", ct.Kind), nil)
	}
}

// evaluateRoutingGuard evaluates the rule's boolean expression against the
// aggregate. Exposed parameters: amount, currency, payment_method.
func evaluateRoutingGuard(condition string, pd *PaymentData) (bool, error) {
	expr, err := govaluate.NewEvaluableExpression(condition)
	if err != nil {
		return false, fmt.Errorf("parse guard: %w", err)
	}
	params := map[string]interface{}{
		"amount":         float64(pd.Intent.Amount),
		"currency":       pd.Intent.Currency,
		"payment_method": string(pd.Attempt.PaymentMethod),
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("evaluate guard: %w", err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("guard %q is not a boolean expression", condition)
	}
	return ok, nil
}
