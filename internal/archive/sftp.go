package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const dialTimeout = 20 * time.Second

type SFTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	RemoteDir string
	// KnownHostsFile enables host key verification. Keys are not checked when empty.
	KnownHostsFile string
}

func (c SFTPConfig) withDefaults() SFTPConfig {
	if c.Port <= 0 {
		c.Port = 22
	}
	if c.RemoteDir == "" {
		c.RemoteDir = "/"
	}
	return c
}

func (c SFTPConfig) validate() error {
	if c.Host == "" || c.User == "" || c.Password == "" {
		return fmt.Errorf("sftp: host, user and password are required")
	}
	return nil
}

// SFTPUploader copies archive files to a remote directory.
type SFTPUploader struct {
	cfg    SFTPConfig
	logger *zap.Logger
}

func NewSFTPUploader(cfg SFTPConfig, logger *zap.Logger) (*SFTPUploader, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SFTPUploader{cfg: cfg, logger: logger}, nil
}

func (u *SFTPUploader) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if u.cfg.KnownHostsFile == "" {
		u.logger.Warn("sftp host key verification is disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(u.cfg.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("sftp: known hosts: %w", err)
	}
	return cb, nil
}

func (u *SFTPUploader) dial(ctx context.Context) (*ssh.Client, error) {
	cb, err := u.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            u.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(u.cfg.Password)},
		HostKeyCallback: cb,
		Timeout:         dialTimeout,
	}
	addr := fmt.Sprintf("%s:%d", u.cfg.Host, u.cfg.Port)

	type dialResult struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialResult, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialResult{client: c, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.client != nil {
				r.client.Close()
			}
		}()
		return nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("sftp: dial error: %w", r.err)
		}
		return r.client, nil
	}
}

// Upload copies localPath into the remote directory under its base name.
func (u *SFTPUploader) Upload(ctx context.Context, localPath string) error {
	sshClient, err := u.dial(ctx)
	if err != nil {
		return err
	}
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("sftp: new client: %w", err)
	}
	defer client.Close()

	if err := client.MkdirAll(u.cfg.RemoteDir); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", u.cfg.RemoteDir, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	remotePath := path.Join(u.cfg.RemoteDir, filepath.Base(localPath))
	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: create remote file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("sftp: upload copy: %w", err)
	}

	u.logger.Info("uploaded archive file", zap.String("remote_path", remotePath))
	return nil
}
