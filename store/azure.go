package store

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/pkg/errors"
)

// AzureBackend writes/reads artifacts against an Azure Blob Storage
// container; an alternative cloud backend alongside S3, selected by
// store_type: "azure" in config.
type AzureBackend struct {
	Client     *azblob.Client
	Container  string
	Timeout    time.Duration
	MaxRetries int
}

func NewAzureBackend(client *azblob.Client, containerName string, timeout time.Duration, maxRetries int) *AzureBackend {
	return &AzureBackend{Client: client, Container: containerName, Timeout: timeout, MaxRetries: maxRetries}
}

func (a *AzureBackend) Put(key string, body []byte, _ bool) error {
	var lastErr error
	for attempt := 0; attempt <= a.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
		_, err := a.Client.UploadBuffer(ctx, a.Container, key, body, &azblob.UploadBufferOptions{})
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return errors.Wrapf(lastErr, "store: azure put %s after %d attempts", key, a.MaxRetries+1)
}

func (a *AzureBackend) Get(key string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
	defer cancel()
	resp, err := a.Client.DownloadStream(ctx, a.Container, key, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "store: azure get %s", key)
	}
	return resp.Body, nil
}

func (a *AzureBackend) GetConditional(key, etag string) (io.ReadCloser, string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
	defer cancel()
	opts := &blob.DownloadStreamOptions{}
	if etag != "" {
		e := azblob.ETag(etag)
		opts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: &e},
		}
	}
	resp, err := a.Client.DownloadStream(ctx, a.Container, key, opts)
	if err != nil {
		if isAzureNotModified(err) {
			return nil, etag, true, nil
		}
		return nil, "", false, errors.Wrapf(err, "store: azure conditional get %s", key)
	}
	newEtag := ""
	if resp.ETag != nil {
		newEtag = string(*resp.ETag)
	}
	return resp.Body, newEtag, false, nil
}

func (a *AzureBackend) Head(key string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
	defer cancel()
	client := a.Client.ServiceClient().NewContainerClient(a.Container).NewBlobClient(key)
	props, err := client.GetProperties(ctx, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "store: azure head %s", key)
	}
	if props.ContentLength == nil {
		return 0, nil
	}
	return *props.ContentLength, nil
}

func isAzureNotModified(err error) bool {
	return err != nil && (errContains(err, "304") || errContains(err, "ConditionNotMet"))
}

func errContains(err error, substr string) bool {
	return err != nil && len(substr) > 0 && bytes.Contains([]byte(err.Error()), []byte(substr))
}
