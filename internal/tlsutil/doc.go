// Package tlsutil 提供出站 HTTP 连接的 TLS 加固（TLS 1.2+，仅 AEAD 密码套件）
// 与连接池默认值，供远端文生图客户端构建 http.Transport 使用.
package tlsutil
