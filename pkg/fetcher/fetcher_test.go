package fetcher

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynfake "k8s.io/client-go/dynamic/fake"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/history"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/log"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true})
	os.Exit(m.Run())
}

func listKinds() map[schema.GroupVersionResource]string {
	return map[schema.GroupVersionResource]string{
		EgressIPResource:             "EgressIPList",
		CloudPrivateIPConfigResource: "CloudPrivateIPConfigList",
	}
}

func egressIPObject(name string, requested []interface{}, statusItems []interface{}) *unstructured.Unstructured {
	obj := map[string]interface{}{
		"apiVersion": "k8s.ovn.org/v1",
		"kind":       "EgressIP",
		"metadata":   map[string]interface{}{"name": name},
		"spec":       map[string]interface{}{"egressIPs": requested},
	}
	if statusItems != nil {
		obj["status"] = map[string]interface{}{"items": statusItems}
	}
	return &unstructured.Unstructured{Object: obj}
}

func cpicObject(address, node, reason, transition string) *unstructured.Unstructured {
	obj := map[string]interface{}{
		"apiVersion": "cloud.network.openshift.io/v1",
		"kind":       "CloudPrivateIPConfig",
		"metadata":   map[string]interface{}{"name": address},
		"spec":       map[string]interface{}{"node": node},
		"status": map[string]interface{}{
			"node": node,
			"conditions": []interface{}{
				map[string]interface{}{
					"type":               "Assigned",
					"reason":             reason,
					"lastTransitionTime": transition,
				},
			},
		},
	}
	return &unstructured.Unstructured{Object: obj}
}

func node(name string, capable bool) *corev1.Node {
	n := &corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if capable {
		n.Labels = map[string]string{"k8s.ovn.org/egress-assignable": "true"}
	}
	return n
}

func TestFetchAllKinds(t *testing.T) {
	scheme := runtime.NewScheme()
	dyn := dynfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds(),
		egressIPObject("prod-egress",
			[]interface{}{"10.0.0.1", "10.0.0.2"},
			[]interface{}{
				map[string]interface{}{"egressIP": "10.0.0.1", "node": "worker-1"},
			}),
		cpicObject("10.0.0.1", "worker-1", "CloudResponseSuccess", "2025-06-01T12:00:00Z"),
		cpicObject("10.0.0.2", "worker-2", "CloudResponseError", "2025-06-01T11:00:00Z"),
	)
	kube := k8sfake.NewSimpleClientset(node("worker-1", true), node("worker-2", true), node("infra-1", false))

	perf := history.NewSampleWindow(100)
	f := New(kube, dyn, 5*time.Second, 75, perf)

	result := f.Fetch(context.Background())

	require.True(t, result.AllSucceeded())

	require.Len(t, result.Requests, 1)
	req := result.Requests[0]
	assert.Equal(t, "prod-egress", req.Name)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, req.Requested)
	require.Len(t, req.Status, 1)
	assert.Equal(t, "worker-1", req.Status[0].Node)

	require.Len(t, result.Assignments, 2)
	byAddr := map[string]types.AddressAssignment{}
	for _, a := range result.Assignments {
		byAddr[a.Address] = a
	}
	assert.Equal(t, types.PhaseSuccess, byAddr["10.0.0.1"].Phase)
	assert.Equal(t, types.PhaseError, byAddr["10.0.0.2"].Phase)
	assert.Equal(t, "worker-1", byAddr["10.0.0.1"].Node)
	assert.False(t, byAddr["10.0.0.1"].LastTransition.IsZero())

	require.Len(t, result.Nodes, 3)
	capable := 0
	for _, n := range result.Nodes {
		assert.Equal(t, 75, n.Capacity)
		if n.EgressCapable {
			capable++
		}
	}
	assert.Equal(t, 2, capable)

	// One sample per call, all successful.
	require.Len(t, result.Samples, 3)
	for _, op := range types.Operations {
		assert.InDelta(t, 100.0, perf.SuccessRate(op), 1e-9)
	}
}

func TestFetchIsolatesKindFailure(t *testing.T) {
	scheme := runtime.NewScheme()
	dyn := dynfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds(),
		cpicObject("10.0.0.1", "worker-1", "CloudResponseSuccess", "2025-06-01T12:00:00Z"),
	)
	dyn.PrependReactor("list", "egressips", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("connection refused")
	})
	kube := k8sfake.NewSimpleClientset(node("worker-1", true))

	perf := history.NewSampleWindow(100)
	f := New(kube, dyn, 5*time.Second, 75, perf)

	result := f.Fetch(context.Background())

	assert.Error(t, result.RequestsErr)
	assert.NoError(t, result.AssignmentsErr)
	assert.NoError(t, result.NodesErr)
	assert.Equal(t, 1, result.FailureCount())

	// The other two kinds still returned data.
	assert.Len(t, result.Assignments, 1)
	assert.Len(t, result.Nodes, 1)

	// The failed call is still sampled.
	require.Len(t, result.Samples, 3)
	assert.InDelta(t, 0.0, perf.SuccessRate(types.OpListRequests), 1e-9)
}

func TestFetchSkipsMalformedItems(t *testing.T) {
	scheme := runtime.NewScheme()
	missingSpec := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "k8s.ovn.org/v1",
		"kind":       "EgressIP",
		"metadata":   map[string]interface{}{"name": "broken"},
	}}
	dyn := dynfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds(),
		missingSpec,
		egressIPObject("ok", []interface{}{"10.0.0.9"}, nil),
	)
	kube := k8sfake.NewSimpleClientset()

	f := New(kube, dyn, 5*time.Second, 75, history.NewSampleWindow(100))
	result := f.Fetch(context.Background())

	require.NoError(t, result.RequestsErr)
	require.Len(t, result.Requests, 1)
	assert.Equal(t, "ok", result.Requests[0].Name)
}

func TestFetchAssignmentWithoutConditions(t *testing.T) {
	scheme := runtime.NewScheme()
	bare := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "cloud.network.openshift.io/v1",
		"kind":       "CloudPrivateIPConfig",
		"metadata":   map[string]interface{}{"name": "10.0.0.5"},
		"spec":       map[string]interface{}{"node": "worker-9"},
	}}
	dyn := dynfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds(), bare)
	kube := k8sfake.NewSimpleClientset()

	f := New(kube, dyn, 5*time.Second, 75, history.NewSampleWindow(100))
	result := f.Fetch(context.Background())

	require.NoError(t, result.AssignmentsErr)
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, types.PhaseUnknown, result.Assignments[0].Phase)
	assert.Equal(t, "worker-9", result.Assignments[0].Node)
}
