package erm

import "errors"

var (
	// ErrTooManyPolicies indicates a policy list longer than
	// policy.MaxPolicies.
	ErrTooManyPolicies = errors.New("erm: policy list longer than MaxPolicies")

	// ErrNilPolicyData indicates a parameterized policy node without data.
	ErrNilPolicyData = errors.New("erm: policy data was nil")

	// ErrUnknownTag indicates a policy node with an unknown tag.
	ErrUnknownTag = errors.New("erm: unknown policy tag")
)
