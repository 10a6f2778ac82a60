/*
Package ldap provides the directory side of the domain controller connector.

# Connection Management

Client wraps go-ldap with a connection pool:

  - SRV-based domain controller discovery (_ldaps, _ldap, _gc)
  - Simple bind or Kerberos (GSSAPI) bind per pooled connection
  - Health checks and re-authentication of idle connections
  - Opt-in retry with exponential backoff

A logical operation acquires one Session, performs its searches and
modifications on that connection, and closes the session on every path:

	sess, err := client.Session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

# Groups and Users

GroupDirectory and UserDirectory locate entries through the filters of a
DirectoryConfig ({0} is replaced with the filter-escaped account name) and
map them onto Group and User snapshots. Binary objectGUID and objectSid
values are decoded to their string forms.

# Membership

Reconcile computes the minimal add/remove delta between two DN sets.
MembershipWriter applies it: a group's member attribute is modified with one
request, created fresh when it was empty. A user's memberOf is a
back-reference maintained by the directory; changing a user's groups
modifies the member attribute of each affected group instead.

# Errors

Directory failures are wrapped in LDAPError and mapped onto the shared
dcerr taxonomy by Classify.
*/
package ldap
