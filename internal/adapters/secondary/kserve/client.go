package kserve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"ai-bom-service/internal/config"
	ports "ai-bom-service/internal/core/ports/output"
)

var inferenceServiceGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

// AllNamespaces lists InferenceServices cluster-wide.
const AllNamespaces = "*"

// Predictor keys from the pre-"model" KServe spec, each carrying its own
// storageUri.
var legacyPredictors = []string{"sklearn", "xgboost", "tensorflow", "pytorch", "onnx", "triton", "lightgbm", "pmml", "paddle", "huggingface"}

type kserveClient struct {
	client    dynamic.Interface
	enabled   bool
	defaultNS string
}

// NewKServeClient creates a new KServe client adapter
func NewKServeClient(cfg *config.KubernetesConfig) (ports.KServeClient, error) {
	if !cfg.Enabled {
		return &kserveClient{enabled: false}, nil
	}

	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}
	return NewWithDynamicClient(client, cfg.DefaultNS), nil
}

// NewWithDynamicClient wraps an existing dynamic client.
func NewWithDynamicClient(client dynamic.Interface, defaultNS string) ports.KServeClient {
	if defaultNS == "" {
		defaultNS = "model-serving"
	}
	return &kserveClient{client: client, enabled: true, defaultNS: defaultNS}
}

func (c *kserveClient) IsAvailable() bool {
	return c.enabled
}

func (c *kserveClient) ListModelSources(ctx context.Context, namespace string) ([]ports.KServeModelSource, error) {
	switch namespace {
	case "":
		namespace = c.defaultNS
	case AllNamespaces:
		namespace = metav1.NamespaceAll
	}

	list, err := c.client.Resource(inferenceServiceGVR).
		Namespace(namespace).
		List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list kserve inferenceservices: %w", err)
	}

	sources := make([]ports.KServeModelSource, 0, len(list.Items))
	for i := range list.Items {
		sources = append(sources, parseModelSource(&list.Items[i]))
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Namespace != sources[j].Namespace {
			return sources[i].Namespace < sources[j].Namespace
		}
		return sources[i].Name < sources[j].Name
	})
	return sources, nil
}

func parseModelSource(obj *unstructured.Unstructured) ports.KServeModelSource {
	src := ports.KServeModelSource{
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
		UID:       string(obj.GetUID()),
		Labels:    obj.GetLabels(),
	}

	model, found, _ := unstructured.NestedMap(obj.Object, "spec", "predictor", "model")
	if found {
		src.StorageURI, _, _ = unstructured.NestedString(model, "storageUri")
		src.ModelFormat, _, _ = unstructured.NestedString(model, "modelFormat", "name")
		src.RuntimeImage, _, _ = unstructured.NestedString(model, "runtime")
		return src
	}

	for _, framework := range legacyPredictors {
		uri, found, _ := unstructured.NestedString(obj.Object, "spec", "predictor", framework, "storageUri")
		if found {
			src.StorageURI = uri
			src.ModelFormat = framework
			return src
		}
	}
	return src
}

var _ ports.KServeClient = (*kserveClient)(nil)
