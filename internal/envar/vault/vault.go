package vault

import (
	"strings"
	"sync"

	"github.com/hashicorp/vault/api"

	"github.com/taskcalendar/calendar-api/internal"
)

// Provider reads secrets from a Vault KV v2 mount. Secret keys take the form
// `/path/to/secret:field`.
type Provider struct {
	client *api.Client
	path   string

	mutex sync.RWMutex
	data  map[string]map[string]interface{}
}

// New instantiates a Vault provider.
func New(token, addr, path string) (*Provider, error) {
	config := api.DefaultConfig()
	config.Address = addr

	client, err := api.NewClient(config)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "api.NewClient")
	}

	client.SetToken(token)

	return &Provider{
		client: client,
		path:   path,
		data:   make(map[string]map[string]interface{}),
	}, nil
}

// Get reads the secret field referred to by key.
func (p *Provider) Get(key string) (string, error) {
	index := strings.LastIndex(key, ":")
	if index == -1 {
		return "", internal.NewErrorf(internal.ErrorCodeInvalidArgument, "invalid key %q", key)
	}

	secretPath, field := key[:index], key[index+1:]

	data, err := p.secret(secretPath)
	if err != nil {
		return "", err
	}

	res, ok := data[field]
	if !ok {
		return "", internal.NewErrorf(internal.ErrorCodeNotFound, "field %q not found", field)
	}

	val, ok := res.(string)
	if !ok {
		return "", internal.NewErrorf(internal.ErrorCodeUnknown, "field %q is not a string", field)
	}

	return val, nil
}

func (p *Provider) secret(secretPath string) (map[string]interface{}, error) {
	p.mutex.RLock()
	data, ok := p.data[secretPath]
	p.mutex.RUnlock()

	if ok {
		return data, nil
	}

	secret, err := p.client.Logical().Read(p.path + "/data" + secretPath)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "Logical().Read")
	}

	if secret == nil || secret.Data == nil {
		return nil, internal.NewErrorf(internal.ErrorCodeNotFound, "secret %q not found", secretPath)
	}

	data, ok = secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, internal.NewErrorf(internal.ErrorCodeUnknown, "secret %q has no data", secretPath)
	}

	p.mutex.Lock()
	p.data[secretPath] = data
	p.mutex.Unlock()

	return data, nil
}
