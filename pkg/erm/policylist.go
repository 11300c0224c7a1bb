package erm

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/ermalloc/policy"
)

// Policy list tags, matching enum er_policy in ermalloc.h.
const (
	TagNil         int32 = 0
	TagRedundancy  int32 = 1
	TagReedSolomon int32 = 2
)

// PolicyList has the memory layout of struct er_policy_list. For the
// Redundancy and ReedSolomon tags Data points to a uint32 holding the copy
// count or parity byte count.
type PolicyList struct {
	Tag  int32
	Data unsafe.Pointer
	Next *PolicyList
}

// NewPolicyList builds a list describing ps. Returns nil for no policies.
func NewPolicyList(ps ...policy.Policy) *PolicyList {
	var head *PolicyList
	for i := len(ps) - 1; i >= 0; i-- {
		node := &PolicyList{Next: head}
		switch ps[i].Kind() {
		case policy.KindRedundancy:
			node.Tag = TagRedundancy
		case policy.KindReedSolomon:
			node.Tag = TagReedSolomon
		default:
			node.Tag = TagNil
		}
		if node.Tag != TagNil {
			param := ps[i].Param()
			node.Data = unsafe.Pointer(&param)
		}
		head = node
	}
	return head
}

// DecodePolicies walks list into a stack. A nil list is the empty stack.
// The list is not retained.
func DecodePolicies(list *PolicyList) (policy.Stack, error) {
	var s policy.Stack
	i := 0
	for node := list; node != nil; node = node.Next {
		if i >= policy.MaxPolicies {
			return policy.Stack{}, fmt.Errorf("%w: more than %d nodes", ErrTooManyPolicies, policy.MaxPolicies)
		}
		switch node.Tag {
		case TagNil:
			s[i] = policy.Nil
		case TagRedundancy, TagReedSolomon:
			if node.Data == nil {
				return policy.Stack{}, fmt.Errorf("%w: node %d", ErrNilPolicyData, i)
			}
			param := *(*uint32)(node.Data)
			if node.Tag == TagRedundancy {
				s[i] = policy.Redundancy(param)
			} else {
				s[i] = policy.ReedSolomon(param)
			}
		default:
			return policy.Stack{}, fmt.Errorf("%w: %d at node %d", ErrUnknownTag, node.Tag, i)
		}
		i++
	}
	return s, nil
}
