package refdata

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// FTPOptions configures FTP drop ingestion.
type FTPOptions struct {
	Timeout    time.Duration
	MaxRetries int
}

// parseFTPURL extracts host (with port), credentials, and path from an FTP
// URL. Credentials default to anonymous when the URL carries none.
func parseFTPURL(rawURL string) (host, user, pass, filePath string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	user, pass = "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}

	if u.Path == "" {
		return "", "", "", "", eris.New("empty path in ftp url")
	}
	return host, user, pass, u.Path, nil
}

// ftpConnReader ties the FTP data stream to its control connection so that
// closing the reader also disconnects from the server.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

func ftpDownload(ctx context.Context, rawURL string, timeout time.Duration) (io.ReadCloser, error) {
	host, user, pass, filePath, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("refdata: ftp connecting",
		zap.String("host", host),
		zap.String("path", filePath),
	)

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(filePath)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

type ftpSource struct {
	url  string
	opts FTPOptions
}

// NewFTPSource fetches a rate file from an FTP drop, the delivery channel
// several rate survey vendors still use.
func NewFTPSource(rawURL string, opts FTPOptions) Source {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &ftpSource{url: rawURL, opts: opts}
}

func (s *ftpSource) Name() string { return s.url }

func (s *ftpSource) Load(ctx context.Context) ([]model.RateObservation, error) {
	tmp, err := retryDo(ctx, s.opts.MaxRetries, "ftp download", func(ctx context.Context) (string, error) {
		return downloadTemp(ctx, s.url, func(ctx context.Context, dest string) (int64, error) {
			rc, err := ftpDownload(ctx, s.url, s.opts.Timeout)
			if err != nil {
				return 0, err
			}
			defer rc.Close() //nolint:errcheck

			f, err := os.Create(dest)
			if err != nil {
				return 0, eris.Wrap(err, "create file")
			}
			defer f.Close() //nolint:errcheck

			return io.Copy(f, rc)
		})
	})
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp) //nolint:errcheck

	return NewFileSource(tmp).Load(ctx)
}
