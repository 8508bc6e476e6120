package gstorage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Daskott/rightguard/utils"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var ErrObjectNotExist = storage.ErrObjectNotExist

// objectStore is the slice of the storage client GStorage needs
type objectStore interface {
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

type GStorage struct {
	objects objectStore
	client  *storage.Client
}

func NewGStorage(ctx context.Context, credentialsFilePath string) (*GStorage, error) {
	var client *storage.Client
	var err error

	if credentialsFilePath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFilePath))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("NewGStorage: %v", err)
	}

	return &GStorage{objects: &gcsObjects{client: client}, client: client}, nil
}

func (gs *GStorage) Close() error {
	if gs.client == nil {
		return nil
	}
	return gs.client.Close()
}

// UploadFile uploads filePath as object.
func (gs *GStorage) UploadFile(ctx context.Context, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("os.Open: %v", err)
	}
	defer f.Close()

	wc := gs.objects.NewWriter(ctx, bucket, object)
	if _, err = io.Copy(wc, f); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %v", err)
	}

	return nil
}

// DownloadFile downloads an object to a file.
func (gs *GStorage) DownloadFile(ctx context.Context, bucket, object string, destFileName string) error {
	rc, err := gs.objects.NewReader(ctx, bucket, object)
	if err == storage.ErrObjectNotExist {
		return err
	}
	if err != nil {
		return fmt.Errorf("Object(%q).NewReader: %v", object, err)
	}
	defer rc.Close()

	f, err := os.OpenFile(destFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("os.OpenFile: %v", err)
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("f.Close: %v", err)
	}

	return nil
}

// BackupDir uploads every regular file under dir to prefix/<relative path>
// and returns the uploaded object names.
func (gs *GStorage) BackupDir(ctx context.Context, bucket, prefix, dir string) ([]string, error) {
	uploaded := []string{}

	err := filepath.WalkDir(dir, func(filePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() || strings.HasSuffix(entry.Name(), ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(dir, filePath)
		if err != nil {
			return err
		}

		object := path.Join(prefix, filepath.ToSlash(rel))
		if err := gs.UploadFile(ctx, bucket, object, filePath); err != nil {
			return fmt.Errorf("%v: %v", object, err)
		}
		uploaded = append(uploaded, object)
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("BackupDir: %v", err)
	}

	return uploaded, nil
}

// RestoreDir downloads every object under prefix into dir and returns the restored object names
func (gs *GStorage) RestoreDir(ctx context.Context, bucket, prefix, dir string) ([]string, error) {
	objects, err := gs.objects.List(ctx, bucket, prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("RestoreDir: %v", err)
	}

	restored := []string{}
	for _, object := range objects {
		dest := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(object, prefix+"/")))
		if err := utils.CreateDirIfNotExist(filepath.Dir(dest)); err != nil {
			return restored, fmt.Errorf("RestoreDir: %v", err)
		}

		if err := gs.DownloadFile(ctx, bucket, object, dest); err != nil {
			return restored, fmt.Errorf("RestoreDir %v: %v", object, err)
		}
		restored = append(restored, object)
	}

	return restored, nil
}

type gcsObjects struct {
	client *storage.Client
}

func (g *gcsObjects) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	return g.client.Bucket(bucket).Object(object).NewWriter(ctx)
}

func (g *gcsObjects) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return g.client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (g *gcsObjects) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	names := []string{}

	it := g.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}

	return names, nil
}
