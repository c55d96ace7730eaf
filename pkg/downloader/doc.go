/*
Package downloader streams a URL to a target path with resume and
SHA-256 verification (C3). Download runs a HEAD preflight, evaluates
the five-case resume decision tree of spec §4.3 against any existing
partial file and sidecar, then streams the body in a single connection,
periodically persisting a sidecar document and invoking a caller
progress callback.

Object-store-style origins (matched by a substring on the URL, e.g.
S3/OSS/Aliyun hostnames) get a longer per-connection timeout than
ordinary HTTP origins, since large bundle transfers against those hosts
commonly run far longer than 30 minutes.
*/
package downloader
