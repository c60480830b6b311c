package main

//
// Session metadata formatting
//

import (
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/ooni/sslclient/internal/sslclient"
	"golang.org/x/crypto/ocsp"
)

// metadataFields returns the fields of the "table" log entry
// describing the session metadata.
func metadataFields(serverName string, md *sslclient.SessionMetadata) log.Fields {
	fields := log.Fields{
		"type":          "table",
		"server_name":   serverName,
		"version":       md.Version.String(),
		"cipher":        md.CipherName,
		"cipher_bits":   md.CipherBits,
		"cipher_id":     fmt.Sprintf("0x%02X%02X", md.CipherProtocolID[0], md.CipherProtocolID[1]),
		"verify_result": fmt.Sprintf("%d (%s)", md.VerifyResult, md.VerifyResultString),
		"chain_length":  len(md.PeerCertChain),
		"early_data":    md.EarlyDataStatus.String(),
		"ocsp":          ocspStatus(md),
	}
	if leaf := md.PeerCertificate(); leaf != nil {
		fields["subject"] = leaf.Subject.String()
		fields["issuer"] = leaf.Issuer.String()
		fields["not_after"] = leaf.NotAfter.UTC().Format(time.RFC3339)
	}
	if md.PeerSignatureDigest != "" {
		fields["peer_signature"] = md.PeerSignatureType + "+" + md.PeerSignatureDigest
	}
	if len(md.ClientCAList) > 0 {
		fields["client_ca_list"] = md.ClientCAList
	}
	return fields
}

// ocspStatus returns a description of the stapled OCSP response.
func ocspStatus(md *sslclient.SessionMetadata) string {
	if md.OCSPResponse == nil {
		return "none"
	}
	if len(md.PeerCertChain) < 2 {
		return "stapled (issuer unavailable)"
	}
	resp, err := md.OCSPResponse.Parse(md.PeerCertChain[1])
	if err != nil {
		return fmt.Sprintf("invalid (%s)", err.Error())
	}
	switch resp.Status {
	case ocsp.Good:
		return "good"
	case ocsp.Revoked:
		return "revoked"
	default:
		return "unknown"
	}
}
