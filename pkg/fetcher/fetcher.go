package fetcher

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/history"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/log"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

var (
	// EgressIPResource is the OVN-Kubernetes EgressIP custom resource.
	EgressIPResource = schema.GroupVersionResource{
		Group:    "k8s.ovn.org",
		Version:  "v1",
		Resource: "egressips",
	}

	// CloudPrivateIPConfigResource is the per-address assignment resource.
	CloudPrivateIPConfigResource = schema.GroupVersionResource{
		Group:    "cloud.network.openshift.io",
		Version:  "v1",
		Resource: "cloudprivateipconfigs",
	}
)

// egressAssignableLabel marks nodes that may hold egress addresses.
const egressAssignableLabel = "k8s.ovn.org/egress-assignable"

// Fetcher issues the three list calls against the cluster API. Each call
// has its own timeout and failure isolation: a failed kind never aborts
// the other two.
type Fetcher struct {
	kube         kubernetes.Interface
	dyn          dynamic.Interface
	timeout      time.Duration
	nodeCapacity int
	perf         *history.SampleWindow
}

// New creates a fetcher. Every list call, success or failure, records one
// APICallSample into perf.
func New(kube kubernetes.Interface, dyn dynamic.Interface, timeout time.Duration, nodeCapacity int, perf *history.SampleWindow) *Fetcher {
	return &Fetcher{
		kube:         kube,
		dyn:          dyn,
		timeout:      timeout,
		nodeCapacity: nodeCapacity,
		perf:         perf,
	}
}

// Fetch runs the three list calls and returns the per-kind results.
func (f *Fetcher) Fetch(ctx context.Context) *types.FetchResult {
	result := &types.FetchResult{}

	result.Requests, result.RequestsErr = f.listRequests(ctx, result)
	result.Assignments, result.AssignmentsErr = f.listAssignments(ctx, result)
	result.Nodes, result.NodesErr = f.listNodes(ctx, result)

	return result
}

// timedCall wraps one list call with its timeout and sample recording.
func (f *Fetcher) timedCall(ctx context.Context, op types.Operation, result *types.FetchResult, call func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	err := call(callCtx)
	sample := types.APICallSample{
		Operation: op,
		Duration:  time.Since(start),
		Success:   err == nil,
		At:        start,
	}
	f.perf.Record(sample)
	result.Samples = append(result.Samples, sample)

	if err != nil {
		logger := log.WithOperation(string(op))
		if apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err) {
			logger.Error().Err(err).Msg("authorization failure listing resources, check RBAC")
		} else {
			logger.Error().Err(err).Msg("list call failed")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (f *Fetcher) listRequests(ctx context.Context, result *types.FetchResult) ([]types.EgressAddressRequest, error) {
	var list *unstructured.UnstructuredList
	err := f.timedCall(ctx, types.OpListRequests, result, func(ctx context.Context) error {
		var err error
		list, err = f.dyn.Resource(EgressIPResource).List(ctx, metav1.ListOptions{})
		return err
	})
	if err != nil {
		return nil, err
	}

	requests := make([]types.EgressAddressRequest, 0, len(list.Items))
	for i := range list.Items {
		req, ok := parseRequest(&list.Items[i])
		if !ok {
			continue
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (f *Fetcher) listAssignments(ctx context.Context, result *types.FetchResult) ([]types.AddressAssignment, error) {
	var list *unstructured.UnstructuredList
	err := f.timedCall(ctx, types.OpListAssignments, result, func(ctx context.Context) error {
		var err error
		list, err = f.dyn.Resource(CloudPrivateIPConfigResource).List(ctx, metav1.ListOptions{})
		return err
	})
	if err != nil {
		return nil, err
	}

	assignments := make([]types.AddressAssignment, 0, len(list.Items))
	for i := range list.Items {
		a, ok := parseAssignment(&list.Items[i])
		if !ok {
			continue
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

func (f *Fetcher) listNodes(ctx context.Context, result *types.FetchResult) ([]types.NodeInfo, error) {
	var nodes []types.NodeInfo
	err := f.timedCall(ctx, types.OpListNodes, result, func(ctx context.Context) error {
		list, err := f.kube.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
		if err != nil {
			return err
		}
		nodes = make([]types.NodeInfo, 0, len(list.Items))
		for _, node := range list.Items {
			value, labeled := node.Labels[egressAssignableLabel]
			nodes = append(nodes, types.NodeInfo{
				Name:          node.Name,
				EgressCapable: labeled && value != "false",
				Capacity:      f.nodeCapacity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// parseRequest extracts one EgressIP resource. A malformed item degrades
// to a skip with a warning, never an error for the whole list.
func parseRequest(obj *unstructured.Unstructured) (types.EgressAddressRequest, bool) {
	logger := log.WithComponent("fetcher")

	name := obj.GetName()
	if name == "" {
		logger.Warn().Msg("skipping egress request without a name")
		return types.EgressAddressRequest{}, false
	}

	requested, found, err := unstructured.NestedStringSlice(obj.Object, "spec", "egressIPs")
	if err != nil || !found {
		logger.Warn().Str("name", name).Msg("skipping egress request without spec.egressIPs")
		return types.EgressAddressRequest{}, false
	}

	req := types.EgressAddressRequest{
		Namespace: obj.GetNamespace(),
		Name:      name,
		Requested: requested,
	}

	items, _, _ := unstructured.NestedSlice(obj.Object, "status", "items")
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			logger.Warn().Str("name", name).Msg("skipping malformed status item")
			continue
		}
		addr, _, _ := unstructured.NestedString(item, "egressIP")
		node, _, _ := unstructured.NestedString(item, "node")
		if addr == "" {
			continue
		}
		req.Status = append(req.Status, types.AddressBinding{Address: addr, Node: node})
	}
	return req, true
}

// parseAssignment extracts one CloudPrivateIPConfig resource. The phase is
// derived from the latest status condition's reason.
func parseAssignment(obj *unstructured.Unstructured) (types.AddressAssignment, bool) {
	logger := log.WithComponent("fetcher")

	address := obj.GetName()
	if address == "" {
		logger.Warn().Msg("skipping assignment without a name")
		return types.AddressAssignment{}, false
	}

	a := types.AddressAssignment{
		Address: address,
		Phase:   types.PhaseUnknown,
	}
	if node, _, _ := unstructured.NestedString(obj.Object, "status", "node"); node != "" {
		a.Node = node
	} else {
		a.Node, _, _ = unstructured.NestedString(obj.Object, "spec", "node")
	}

	conditions, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if len(conditions) == 0 {
		return a, true
	}
	latest, ok := conditions[len(conditions)-1].(map[string]interface{})
	if !ok {
		logger.Warn().Str("address", address).Msg("skipping malformed condition")
		return a, true
	}

	reason, _, _ := unstructured.NestedString(latest, "reason")
	switch reason {
	case "CloudResponseSuccess":
		a.Phase = types.PhaseSuccess
	case "CloudResponsePending":
		a.Phase = types.PhasePending
	case "CloudResponseError":
		a.Phase = types.PhaseError
	}

	if ts, _, _ := unstructured.NestedString(latest, "lastTransitionTime"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			a.LastTransition = parsed
		} else {
			logger.Debug().Str("address", address).Str("value", ts).Msg("unparseable transition time")
		}
	}
	return a, true
}
