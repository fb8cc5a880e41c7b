// Package certstore implements the recipient certificate store embedded in
// CCE containers.
//
// A Store is a set of X.509 certificates keyed by SHA-1 fingerprint. It
// serializes to a zip archive with a single CertificateStore entry holding
// an XMLCertificateStore document:
//
//	<certStore:XMLCertificateStore xmlns:certStore="http://www.a-sit.at/2006/12/09/XMLCertificateStore">
//	  <CertificateStoreConfiguration>
//	    <FriendlyName>opencce store</FriendlyName>
//	    <GroupSeperator>/</GroupSeperator>
//	    <Expanded>true</Expanded>
//	    <GroupInformation><Group>...</Group></GroupInformation>
//	  </CertificateStoreConfiguration>
//	  <X509Certificate>
//	    <ID>fingerprint</ID>
//	    <Type>0</Type>
//	    <EncodedX509Certificate>PEM body</EncodedX509Certificate>
//	    <GroupInformation><Group>...</Group></GroupInformation>
//	  </X509Certificate>
//	</certStore:XMLCertificateStore>
//
// The layout, including the GroupSeperator spelling, is fixed by existing
// CCE readers and must not change.
package certstore
