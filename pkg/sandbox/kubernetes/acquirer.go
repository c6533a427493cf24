// Package kubernetes provides a sandbox.Acquirer that runs generated
// programs in agent-sandbox pods claimed through SandboxClaim resources.
package kubernetes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	sandboxv1alpha1 "sigs.k8s.io/agent-sandbox/api/v1alpha1"
	extensionsv1alpha1 "sigs.k8s.io/agent-sandbox/extensions/api/v1alpha1"

	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/sandbox"
)

var _ sandbox.Acquirer = (*ClaimAcquirer)(nil)

// ManagedByLabel marks claims created by laph.
const ManagedByLabel = "app.kubernetes.io/managed-by"

// Config describes where and how sandbox pods are claimed.
type Config struct {
	// Template is the SandboxTemplate the claims refer to.
	Template string

	// Namespace holds the claims and sandboxes.
	Namespace string

	// Timeout bounds the wait for a claimed sandbox to become ready.
	Timeout time.Duration

	// Port is the sandbox server port inside the pod (default 8080).
	Port int

	// PollInterval is the readiness polling period (default 500ms).
	PollInterval time.Duration
}

// ClaimAcquirer creates one SandboxClaim per execution, waits for the
// matching Sandbox to report Ready, and deletes the claim on release.
type ClaimAcquirer struct {
	client  client.Client
	cfg     Config
	newName func() string
}

// NewClaimAcquirer creates a ClaimAcquirer.
func NewClaimAcquirer(c client.Client, cfg Config) *ClaimAcquirer {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ClaimAcquirer{client: c, cfg: cfg, newName: claimName}
}

// NewScheme returns a runtime.Scheme with the agent-sandbox types registered.
func NewScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := sandboxv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register sandbox types: %w", err)
	}
	if err := extensionsv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register extensions types: %w", err)
	}
	return scheme, nil
}

// Acquire claims a sandbox and returns its server URL
// (http://<serviceFQDN>:<port>) with a release function that deletes the
// claim.
func (a *ClaimAcquirer) Acquire(ctx context.Context) (string, func(), error) {
	name := a.newName()

	claim := &extensionsv1alpha1.SandboxClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: a.cfg.Namespace,
			Labels:    map[string]string{ManagedByLabel: "laph"},
		},
		Spec: extensionsv1alpha1.SandboxClaimSpec{
			TemplateRef: extensionsv1alpha1.SandboxTemplateRef{Name: a.cfg.Template},
		},
	}

	if err := a.client.Create(ctx, claim); err != nil {
		return "", nil, fmt.Errorf("create SandboxClaim %q: %w", name, err)
	}
	debug.Log("sandbox", "created SandboxClaim", "name", name, "namespace", a.cfg.Namespace, "template", a.cfg.Template)

	fqdn, err := a.waitForReady(ctx, name)
	if err != nil {
		a.deleteClaim(context.Background(), name)
		return "", nil, err
	}

	url := fmt.Sprintf("http://%s:%d", fqdn, a.cfg.Port)
	release := func() { a.deleteClaim(context.Background(), name) }

	debug.Log("sandbox", "sandbox acquired", "name", name, "url", url)
	return url, release, nil
}

// waitForReady polls the Sandbox named after the claim until its Ready
// condition is True and its service FQDN is published.
func (a *ClaimAcquirer) waitForReady(ctx context.Context, name string) (string, error) {
	deadline := time.NewTimer(a.cfg.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	key := types.NamespacedName{Name: name, Namespace: a.cfg.Namespace}
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for Sandbox %q: %w", name, ctx.Err())
		case <-deadline.C:
			return "", fmt.Errorf("timeout waiting for Sandbox %q to become ready (waited %s)", name, a.cfg.Timeout)
		case <-ticker.C:
			sb := &sandboxv1alpha1.Sandbox{}
			if err := a.client.Get(ctx, key, sb); err != nil {
				// The controller has not created it yet.
				debug.Log("sandbox", "waiting for Sandbox", "name", name, "error", err.Error())
				continue
			}
			if isReady(sb) && sb.Status.ServiceFQDN != "" {
				return sb.Status.ServiceFQDN, nil
			}
		}
	}
}

func isReady(sb *sandboxv1alpha1.Sandbox) bool {
	for _, c := range sb.Status.Conditions {
		if c.Type == string(sandboxv1alpha1.SandboxConditionReady) && c.Status == metav1.ConditionTrue {
			return true
		}
	}
	return false
}

// deleteClaim deletes a SandboxClaim. Failures are logged only; this runs
// on release and cleanup paths.
func (a *ClaimAcquirer) deleteClaim(ctx context.Context, name string) {
	claim := &extensionsv1alpha1.SandboxClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: a.cfg.Namespace},
	}
	if err := a.client.Delete(ctx, claim); err != nil {
		slog.Warn("failed to delete SandboxClaim", "name", name, "namespace", a.cfg.Namespace, "error", err.Error())
		return
	}
	debug.Log("sandbox", "deleted SandboxClaim", "name", name, "namespace", a.cfg.Namespace)
}

func claimName() string {
	return "laph-sbx-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
