package core

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"os"
	"sync"
	"time"

	"reqkit/database"
	"reqkit/logger"
	"reqkit/models"

	"github.com/elazarl/goproxy"
)

var (
	caCert         *x509.Certificate
	caKey          *rsa.PrivateKey
	sessionIsHTTPS = make(map[int64]bool)
	muSession      sync.Mutex
)

// captureContextData carries the in-flight result between the request and
// response hooks via ctx.UserData.
type captureContextData struct {
	Result *models.ExecutionResult
}

func setGoproxyCA(loadedCa *tls.Certificate) {
	if loadedCa == nil {
		logger.Fatal("setGoproxyCA called with nil certificate")
	}
	goproxy.GoproxyCa = *loadedCa
	logger.ProxyInfo("goproxy CA configured.")
}

// GenerateAndSaveCA creates a fresh CA key pair and writes it to the given
// paths as PEM.
func GenerateAndSaveCA(certPath, keyPath string) error {
	localCaCert, localCaKey, err := generateCA("reqkit Capture Proxy CA")
	if err != nil {
		logger.Error("Failed to generate CA: %v", err)
		return fmt.Errorf("failed to generate CA: %w", err)
	}

	certOut, err := os.Create(certPath)
	if err != nil {
		logger.Error("Failed to open %s for writing: %v", certPath, err)
		return fmt.Errorf("failed to open %s for writing: %w", certPath, err)
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: localCaCert.Raw}); err != nil {
		logger.Error("Failed to write CA certificate to %s: %v", certPath, err)
		return fmt.Errorf("failed to write CA certificate to %s: %w", certPath, err)
	}
	fmt.Printf("CA certificate saved to %s\n", certPath)

	keyOut, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		logger.Error("Failed to open %s for writing: %v", keyPath, err)
		return fmt.Errorf("failed to open %s for writing: %w", keyPath, err)
	}
	defer keyOut.Close()

	privBytes, err := x509.MarshalPKCS8PrivateKey(localCaKey)
	if err != nil {
		logger.ProxyInfo("Warning: could not marshal private key to PKCS8: %v. Trying PKCS1.", err)
		privBytes = x509.MarshalPKCS1PrivateKey(localCaKey)
		if err := pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes}); err != nil {
			logger.Error("Failed to write CA RSA private key to %s: %v", keyPath, err)
			return fmt.Errorf("failed to write CA RSA private key to %s: %w", keyPath, err)
		}
	} else {
		if err := pem.Encode(keyOut, &pem.Block{Type: "PRIVATE KEY", Bytes: privBytes}); err != nil {
			logger.Error("Failed to write CA private key to %s: %v", keyPath, err)
			return fmt.Errorf("failed to write CA private key to %s: %w", keyPath, err)
		}
	}
	fmt.Printf("CA private key saved to %s\n", keyPath)
	return nil
}

func loadCA(certPath, keyPath string) error {
	certPEMBlock, err := os.ReadFile(certPath)
	if err != nil {
		logger.Error("Failed to read CA certificate file %s: %v", certPath, err)
		return fmt.Errorf("failed to read CA certificate file %s: %w", certPath, err)
	}
	certDERBlock, _ := pem.Decode(certPEMBlock)
	if certDERBlock == nil || certDERBlock.Type != "CERTIFICATE" {
		logger.Error("Failed to decode CA certificate PEM block from %s", certPath)
		return fmt.Errorf("failed to decode CA certificate PEM block from %s", certPath)
	}
	loadedCaCert, err := x509.ParseCertificate(certDERBlock.Bytes)
	if err != nil {
		logger.Error("Failed to parse CA certificate from %s: %v", certPath, err)
		return fmt.Errorf("failed to parse CA certificate from %s: %w", certPath, err)
	}
	caCert = loadedCaCert

	keyPEMBlock, err := os.ReadFile(keyPath)
	if err != nil {
		logger.Error("Failed to read CA key file %s: %v", keyPath, err)
		return fmt.Errorf("failed to read CA key file %s: %w", keyPath, err)
	}
	keyDERBlock, _ := pem.Decode(keyPEMBlock)
	if keyDERBlock == nil {
		logger.Error("Failed to decode CA key PEM block from %s", keyPath)
		return fmt.Errorf("failed to decode CA key PEM block from %s", keyPath)
	}

	var parsedKey interface{}
	switch keyDERBlock.Type {
	case "PRIVATE KEY":
		parsedKey, err = x509.ParsePKCS8PrivateKey(keyDERBlock.Bytes)
	case "RSA PRIVATE KEY":
		parsedKey, err = x509.ParsePKCS1PrivateKey(keyDERBlock.Bytes)
	default:
		logger.Error("Unknown CA key PEM block type '%s' from %s", keyDERBlock.Type, keyPath)
		return fmt.Errorf("unknown CA key PEM block type '%s' from %s", keyDERBlock.Type, keyPath)
	}
	if err != nil {
		logger.Error("Failed to parse CA private key from %s (type %s): %v", keyPath, keyDERBlock.Type, err)
		return fmt.Errorf("failed to parse CA private key from %s (type %s): %w", keyPath, keyDERBlock.Type, err)
	}

	loadedCaKey, ok := parsedKey.(*rsa.PrivateKey)
	if !ok {
		logger.Error("CA key from %s is not an RSA private key after parsing type %s", keyPath, keyDERBlock.Type)
		return fmt.Errorf("CA key from %s is not an RSA private key after parsing type %s", keyPath, keyDERBlock.Type)
	}
	caKey = loadedCaKey

	logger.ProxyInfo("CA certificate and key loaded successfully.")
	return nil
}

func generateCA(commonName string) (*x509.Certificate, *rsa.PrivateKey, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"reqkit Development CA"},
			CommonName:   commonName,
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privKey.PublicKey, privKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(derBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse generated CA certificate: %w", err)
	}
	return cert, privKey, nil
}

// EnsureCA loads the CA from disk, generating a fresh one first if neither
// file exists yet.
func EnsureCA(certPath, keyPath string) error {
	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	if os.IsNotExist(certErr) && os.IsNotExist(keyErr) {
		logger.ProxyInfo("No CA found at %s, generating a new one.", certPath)
		if err := GenerateAndSaveCA(certPath, keyPath); err != nil {
			return err
		}
	}
	return loadCA(certPath, keyPath)
}

// StartCaptureProxy runs a MITM proxy on the given port and records every
// request/response pair it sees as an execution result with source "proxy".
// It blocks until the listener fails.
func StartCaptureProxy(port string, caCertPath, caKeyPath string) error {
	if err := EnsureCA(caCertPath, caKeyPath); err != nil {
		return fmt.Errorf("could not load CA certificate/key: %w", err)
	}

	setGoproxyCA(&tls.Certificate{
		Certificate: [][]byte{caCert.Raw},
		PrivateKey:  caKey,
		Leaf:        caCert,
	})

	proxy := goproxy.NewProxyHttpServer()
	proxy.Logger = log.New(io.Discard, "", 0)

	proxy.OnRequest().HandleConnect(goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
		muSession.Lock()
		sessionIsHTTPS[ctx.Session] = true
		muSession.Unlock()
		logger.ProxyDebug("HandleConnect for session %d, host %s", ctx.Session, host)
		return &goproxy.ConnectAction{Action: goproxy.ConnectMitm, TLSConfig: goproxy.TLSConfigFromCA(&goproxy.GoproxyCa)}, host
	}))

	proxy.OnRequest().DoFunc(
		func(r *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
			startTime := time.Now()

			reqBodyBytes, errReadReq := io.ReadAll(r.Body)
			if errReadReq != nil {
				logger.ProxyError("REQ: Error reading request body for %s %s: %v", r.Method, r.URL.String(), errReadReq)
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewBuffer(reqBodyBytes))

			reqHeadersMap := make(map[string][]string)
			for k, v := range r.Header {
				reqHeadersMap[k] = v
			}
			reqHeadersJSON, _ := json.Marshal(reqHeadersMap)

			muSession.Lock()
			isHTTPS := sessionIsHTTPS[ctx.Session]
			muSession.Unlock()
			if r.Method == http.MethodConnect {
				isHTTPS = true
			}

			result := &models.ExecutionResult{
				Timestamp:      startTime,
				RequestMethod:  r.Method,
				RequestURL:     r.URL.String(),
				RequestHeaders: models.NullString(string(reqHeadersJSON)),
				RequestBody:    reqBodyBytes,
				LogSource:      models.SourceProxy,
			}
			ctx.UserData = &captureContextData{Result: result}

			logger.ProxyInfo("REQ: %s %s (HTTPS: %t)", r.Method, r.URL.String(), isHTTPS)
			return r, nil
		})

	proxy.OnResponse().DoFunc(
		func(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
			pCtxData, ok := ctx.UserData.(*captureContextData)
			if !ok || pCtxData == nil || pCtxData.Result == nil {
				logger.ProxyDebug("RESP: Skipping response without capture context: %s %s", ctx.Req.Method, ctx.Req.URL.String())
				return resp
			}
			result := pCtxData.Result

			if resp == nil {
				logger.ProxyError("RESP: Nil response for %s %s", ctx.Req.Method, ctx.Req.URL.String())
				result.Success = false
				result.ErrorMessage = models.NullString("no response from upstream")
				result.DurationMs = time.Since(result.Timestamp).Milliseconds()
				storeCapturedResult(result)
				return resp
			}

			respBodyBytes, errReadResp := io.ReadAll(resp.Body)
			if errReadResp != nil {
				logger.ProxyError("RESP: Error reading response body for %s %s: %v", ctx.Req.Method, ctx.Req.URL.String(), errReadResp)
			}
			resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewBuffer(respBodyBytes))

			respHeadersMap := make(map[string][]string)
			for k, v := range resp.Header {
				respHeadersMap[k] = v
			}
			respHeadersJSON, _ := json.Marshal(respHeadersMap)

			duration := time.Since(result.Timestamp)
			result.ResponseStatusCode = resp.StatusCode
			result.ResponseHeaders = models.NullString(string(respHeadersJSON))
			result.ResponseBody = respBodyBytes
			result.ResponseContentType = models.NullString(resp.Header.Get("Content-Type"))
			result.ResponseBodySize = int64(len(respBodyBytes))
			result.DurationMs = duration.Milliseconds()
			result.Success = resp.StatusCode < 400

			storeCapturedResult(result)

			logger.ProxyInfo("RESP: %d %s for %s %s (Size: %d, Duration: %s)",
				resp.StatusCode, result.ResponseContentType.String, ctx.Req.Method, ctx.Req.URL.String(), result.ResponseBodySize, duration)

			muSession.Lock()
			delete(sessionIsHTTPS, ctx.Session)
			muSession.Unlock()

			return resp
		})

	logger.ProxyInfo("Capture proxy starting on :%s", port)
	return http.ListenAndServe(":"+port, proxy)
}

func storeCapturedResult(result *models.ExecutionResult) {
	if database.DB == nil {
		logger.ProxyError("storeCapturedResult: Database is not initialized.")
		return
	}
	if _, err := database.InsertResult(result); err != nil {
		logger.ProxyError("storeCapturedResult: Failed to store captured exchange for %s %s: %v", result.RequestMethod, result.RequestURL, err)
	}
}
