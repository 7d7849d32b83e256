/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"encoding/json"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/pkg/errors"
)

// rawParameter holds the acknowledgment text in every evaluation.
const rawParameter = "raw"

// AckEvaluator decides whether a broadcast acknowledgment is accepted.
// The expression sees the top-level fields of a JSON object acknowledgment
// as parameters, and the whole text as "raw".
type AckEvaluator struct {
	source     string
	expression *govaluate.EvaluableExpression
}

// NewAckEvaluator compiles expression. An empty expression yields a nil
// evaluator.
func NewAckEvaluator(expression string) (*AckEvaluator, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil
	}
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid acceptance expression [%s]", expression)
	}
	return &AckEvaluator{source: expression, expression: expr}, nil
}

// String returns the expression source.
func (e *AckEvaluator) String() string {
	return e.source
}

// Evaluate returns the outcome of the expression for ack. Expressions that
// do not evaluate to a boolean are an error.
func (e *AckEvaluator) Evaluate(ack []byte) (bool, error) {
	params := map[string]interface{}{}
	var fields map[string]interface{}
	if err := json.Unmarshal(ack, &fields); err == nil {
		for k, v := range fields {
			params[k] = v
		}
	}
	params[rawParameter] = string(ack)

	result, err := e.expression.Evaluate(params)
	if err != nil {
		return false, errors.Wrapf(err, "evaluation of [%s] failed", e.source)
	}
	accepted, ok := result.(bool)
	if !ok {
		return false, errors.Errorf("[%s] evaluated to %v, not a boolean", e.source, result)
	}
	return accepted, nil
}
