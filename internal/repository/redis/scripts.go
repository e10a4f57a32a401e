package redis

import "github.com/redis/go-redis/v9"

// KEYS[1]=user hash, KEYS[2]=username index, KEYS[3]=id set; ARGV[1]=id, ARGV[2..]=field/value pairs
var createUserLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("SET", KEYS[2], ARGV[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
redis.call("SADD", KEYS[3], ARGV[1])
return 1
`)

// KEYS[1]=user hash; ARGV=field/value pairs. Returns the updated hash or nil when absent.
var updateUserLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return false
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return redis.call("HGETALL", KEYS[1])
`)

// KEYS[1]=user hash, KEYS[2]=sessions hash, KEYS[3]=id set; ARGV[1]=id, ARGV[2]=username key prefix
var deleteUserLua = redis.NewScript(`
local fields = redis.call("HGETALL", KEYS[1])
if #fields == 0 then
  return false
end
local username = redis.call("HGET", KEYS[1], "username")
redis.call("DEL", KEYS[1], KEYS[2])
if username then
  redis.call("DEL", ARGV[2] .. username)
end
redis.call("SREM", KEYS[3], ARGV[1])
return fields
`)

// KEYS[1]=user hash, KEYS[2]=sessions hash; ARGV[1]=token, ARGV[2]=expires_at unix ms
var pushTokenLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
return 1
`)

// KEYS[1]=user hash, KEYS[2]=sessions hash; ARGV[1]=token
var pullTokenLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HDEL", KEYS[2], ARGV[1])
return 1
`)

// KEYS[1]=user hash, KEYS[2]=sessions hash
var clearTokensLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("DEL", KEYS[2])
return 1
`)

// KEYS[1]=user hash, KEYS[2]=sessions hash; ARGV[1]=now unix ms
var pruneTokensLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local now = tonumber(ARGV[1])
local all = redis.call("HGETALL", KEYS[2])
for i = 1, #all, 2 do
  if tonumber(all[i + 1]) <= now then
    redis.call("HDEL", KEYS[2], all[i])
  end
end
return 1
`)
